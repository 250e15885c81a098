package entity

import "encoding/json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockImage BlockKind = "image"
)

// ContentBlock is one part of a multimodal message.
type ContentBlock struct {
	Kind      BlockKind
	Text      string
	Image     []byte
	MediaType string
}

func TextBlock(s string) ContentBlock { return ContentBlock{Kind: BlockText, Text: s} }

func ImageBlock(png []byte) ContentBlock {
	return ContentBlock{Kind: BlockImage, Image: png, MediaType: "image/png"}
}

type Message struct {
	Role       Role
	Blocks     []ContentBlock
	ToolCalls  []ToolCall
	ToolCallID string
}

// Text concatenates the text blocks of the message.
func (m Message) Text() string {
	var s string
	for _, b := range m.Blocks {
		if b.Kind == BlockText {
			s += b.Text
		}
	}
	return s
}

type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON schema object.
	Parameters map[string]any
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

type GenerateRequest struct {
	Messages  []Message
	MaxTokens int
	Tools     []ToolDefinition
}

type GenerateResponse struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}
