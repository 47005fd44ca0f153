package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NoResponseText is returned when a finished run left no assistant message on the thread.
const NoResponseText = "[no response from assistant]"

// ContentTypeText is the only content block type that contributes to extracted text.
const ContentTypeText = "text"

// Message is a single message of a remote thread.
type Message struct {
	ID        string  `json:"id"`
	ThreadID  string  `json:"thread_id,omitempty"`
	RunID     string  `json:"run_id,omitempty"`
	Role      Role    `json:"role"`
	Content   Content `json:"content"`
	CreatedAt int64   `json:"created_at,omitempty"`
}

// Content is the body of a message. The API sends either a plain string or a list
// of typed blocks; both decode into a list of blocks.
type Content []ContentBlock

// ContentBlock is one typed part of a message body.
type ContentBlock struct {
	Type string     `json:"type"`
	Text *TextValue `json:"text,omitempty"`
}

// TextValue is the payload of a text block.
type TextValue struct {
	Value       string            `json:"value"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
}

// TextContent builds a single-block text content.
func TextContent(s string) Content {
	return Content{{Type: ContentTypeText, Text: &TextValue{Value: s}}}
}

// UnmarshalJSON accepts a bare string, a list of blocks, or null.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*c = nil
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TextContent(s)
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("decode message content: %w", err)
	}
	*c = blocks
	return nil
}

// Text joins the values of all text blocks with newlines.
func (c Content) Text() string {
	parts := make([]string, 0, len(c))
	for _, block := range c {
		if block.Type != ContentTypeText || block.Text == nil {
			continue
		}
		parts = append(parts, block.Text.Value)
	}
	return strings.Join(parts, "\n")
}

// AssistantText concatenates the text of every assistant message in the given order,
// newline-joined. It returns NoResponseText when there is no assistant message.
func AssistantText(messages []Message) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role != RoleAssistant {
			continue
		}
		parts = append(parts, msg.Content.Text())
	}
	if len(parts) == 0 {
		return NoResponseText
	}
	return strings.Join(parts, "\n")
}
