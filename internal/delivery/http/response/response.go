package response

import (
	"time"

	"github.com/user/clone-service/internal/entity"
)

type SubmitCloneResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	CloneID   string `json:"clone_id"`
	EventsURL string `json:"events_url"`
}

// CloneResponse is the public view of a clone record. Generated code is
// only included on request.
type CloneResponse struct {
	ID            string             `json:"id"`
	URL           string             `json:"url"`
	Status        entity.CloneStatus `json:"status"`
	PreviewURL    string             `json:"preview_url,omitempty"`
	Error         string             `json:"error,omitempty"`
	GeneratedCode string             `json:"generated_code,omitempty"`
	TokensIn      int64              `json:"tokens_in"`
	TokensOut     int64              `json:"tokens_out"`
	Cost          float64            `json:"cost"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func FromRecord(rec *entity.CloneRecord, withCode bool) CloneResponse {
	resp := CloneResponse{
		ID:         rec.ID,
		URL:        rec.URL,
		Status:     rec.Status,
		PreviewURL: rec.PreviewURL,
		Error:      rec.Error,
		TokensIn:   rec.TokensIn,
		TokensOut:  rec.TokensOut,
		Cost:       rec.Cost,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if withCode {
		resp.GeneratedCode = rec.GeneratedCode
	}
	return resp
}

// EventsResponse is one page of archived events. Next is the Seq to resume from.
type EventsResponse struct {
	Events []entity.Event `json:"events"`
	Next   int64          `json:"next"`
	Done   bool           `json:"done"`
}
