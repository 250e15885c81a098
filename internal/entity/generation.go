package entity

import (
	"path"
	"strings"
)

// GeneratedFile is one source file produced by the model.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ComponentName returns the file's base name without extension.
func (f GeneratedFile) ComponentName() string {
	base := path.Base(f.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// ParseResult is the parser output: ordered files plus the npm packages the
// model requested.
type ParseResult struct {
	Files []GeneratedFile
	Deps  []string
}

// Usage accumulates token counts and cost across model calls.
type Usage struct {
	TokensIn  int64   `json:"tokens_in"`
	TokensOut int64   `json:"tokens_out"`
	Cost      float64 `json:"cost"`
}

func (u *Usage) Add(o Usage) {
	u.TokensIn += o.TokensIn
	u.TokensOut += o.TokensOut
	u.Cost += o.Cost
}

// AgentRole decides which page chrome a section agent owns.
type AgentRole string

const (
	RoleSingle AgentRole = "single"
	RoleTop    AgentRole = "top"
	RoleMiddle AgentRole = "middle"
	RoleBottom AgentRole = "bottom"
)

// OwnsHeader reports whether the role renders the site header.
func (r AgentRole) OwnsHeader() bool { return r == RoleTop || r == RoleSingle }

// OwnsFooter reports whether the role renders the site footer.
func (r AgentRole) OwnsFooter() bool { return r == RoleBottom || r == RoleSingle }

// AgentAssignment is the slice of the page one generation agent is responsible for.
type AgentAssignment struct {
	Index       int
	Count       int
	Role        AgentRole
	Screenshots []Screenshot
	// FirstShot is the index of Screenshots[0] in the full screenshot list.
	FirstShot int
}

// FixContext carries what the fix calls need to stay consistent with the
// original generation: the prompt and the screenshots it was based on.
type FixContext struct {
	Prompt      string
	Screenshots []Screenshot
	Snapshot    *PageSnapshot
}

// GenerationResult is the outcome of a full generation run.
type GenerationResult struct {
	Files      []GeneratedFile
	Deps       []string
	Usage      Usage
	FixContext *FixContext
}

// ComponentRef is one entry of the component manifest given to the assembler.
type ComponentRef struct {
	Name  string
	Path  string
	Agent int
}

// ImportPath returns the "@/..." alias import for the component.
func (c ComponentRef) ImportPath() string {
	p := strings.TrimPrefix(c.Path, "src/")
	return "@/" + strings.TrimSuffix(p, path.Ext(p))
}
