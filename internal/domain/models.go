package domain

// Role identifies the author of a chat message.
type Role string

// Message roles accepted by the relay.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message represents a chat message. Order within a conversation is significant.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is what the browser (or any client) sends to the relay.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`

	// Credential is the caller's upstream bearer token. It arrives in the
	// Authorization header, never in the body.
	Credential string `json:"-"`
}

// CompletionRequest is the request forwarded to an upstream provider.
// Zero-valued sampling fields mean "use the provider default".
type CompletionRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
	Temperature         float64   `json:"temperature,omitempty"`
	TopP                float64   `json:"top_p,omitempty"`
	Stream              bool      `json:"stream"`
	Credential          string    `json:"-"`
}

// StreamChunk is one fragment yielded by a provider. A non-nil Error ends the
// stream; channel close without an error means the provider finished.
type StreamChunk struct {
	ID    string
	Model string
	Delta string
	Error error
}
