package entity

// CloneStatus is the coarse pipeline state reported to the caller.
type CloneStatus string

const (
	StatusScraping   CloneStatus = "scraping"
	StatusGenerating CloneStatus = "generating"
	StatusDeploying  CloneStatus = "deploying"
	StatusFixing     CloneStatus = "fixing"
	StatusDone       CloneStatus = "done"
	StatusError      CloneStatus = "error"
)

// Event is one item of the ordered progress stream. Exactly one of Log or
// Status is set.
type Event struct {
	Seq        int64             `json:"seq"`
	CloneID    string            `json:"clone_id"`
	Log        string            `json:"log,omitempty"`
	Status     CloneStatus       `json:"status,omitempty"`
	Message    string            `json:"message,omitempty"`
	Code       string            `json:"code,omitempty"`
	PreviewURL string            `json:"preview_url,omitempty"`
	Files      map[string]string `json:"files,omitempty"`
}

// IsTerminal reports whether no events follow this one.
func (e Event) IsTerminal() bool {
	return e.Status == StatusDone || e.Status == StatusError
}

// LogFunc receives human-readable progress lines.
type LogFunc func(msg string)
