package entity

import "time"

// CloneRecord is the persisted state of one clone request.
type CloneRecord struct {
	ID            string      `json:"id"`
	URL           string      `json:"url"`
	Status        CloneStatus `json:"status"`
	GeneratedCode string      `json:"generated_code,omitempty"`
	PreviewURL    string      `json:"preview_url,omitempty"`
	Error         string      `json:"error,omitempty"`
	TokensIn      int64       `json:"tokens_in"`
	TokensOut     int64       `json:"tokens_out"`
	Cost          float64     `json:"cost"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// CloneUpdate is a partial update; zero-valued fields are left unchanged.
type CloneUpdate struct {
	Status        CloneStatus
	GeneratedCode string
	PreviewURL    string
	Error         string
	Usage         *Usage
}

// Apply merges u into r.
func (u CloneUpdate) Apply(r *CloneRecord) {
	if u.Status != "" {
		r.Status = u.Status
	}
	if u.GeneratedCode != "" {
		r.GeneratedCode = u.GeneratedCode
	}
	if u.PreviewURL != "" {
		r.PreviewURL = u.PreviewURL
	}
	if u.Error != "" {
		r.Error = u.Error
	}
	if u.Usage != nil {
		r.TokensIn = u.Usage.TokensIn
		r.TokensOut = u.Usage.TokensOut
		r.Cost = u.Usage.Cost
	}
}
