package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message in a conversation history.
//
// On the wire a Turn uses the Gemini content shape:
//
//	{"role":"user","parts":[{"text":"hello"}]}
//
// Decoding also accepts {"role":"user","text":"hello"}.
type Turn struct {
	Role Role
	Text string
}

func UserTurn(text string) Turn  { return Turn{Role: RoleUser, Text: text} }
func ModelTurn(text string) Turn { return Turn{Role: RoleModel, Text: text} }

type turnPart struct {
	Text string `json:"text"`
}

type turnWire struct {
	Role  Role       `json:"role"`
	Parts []turnPart `json:"parts"`
}

func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(turnWire{
		Role:  t.Role,
		Parts: []turnPart{{Text: t.Text}},
	})
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  Role       `json:"role"`
		Text  *string    `json:"text"`
		Parts []turnPart `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	role := Role(strings.ToLower(strings.TrimSpace(string(raw.Role))))
	switch role {
	case RoleUser, RoleModel:
	case "":
		role = RoleUser
	default:
		return fmt.Errorf("unknown turn role: %q", raw.Role)
	}
	t.Role = role
	if raw.Text != nil {
		t.Text = *raw.Text
		return nil
	}
	texts := make([]string, 0, len(raw.Parts))
	for _, p := range raw.Parts {
		texts = append(texts, p.Text)
	}
	t.Text = strings.Join(texts, "\n")
	return nil
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text         string
	FinishReason string
	Usage        Usage
	Duration     time.Duration
}

type Client interface {
	Complete(ctx context.Context, history []Turn) (Result, error)
}

// CloneTurns returns a copy that does not share backing storage with in.
func CloneTurns(in []Turn) []Turn {
	if len(in) == 0 {
		return []Turn{}
	}
	out := make([]Turn, len(in))
	copy(out, in)
	return out
}
