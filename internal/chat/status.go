package chat

import (
	"fmt"
	"net/http"
)

// Messages shown in the transcript when a turn fails.
const (
	MsgInvalidKey     = "Invalid API key. Please check your Cerebras API key in the settings."
	MsgInvalidRequest = "Invalid request. Please try again with a different prompt or model."
	MsgRateLimited    = "Rate limit exceeded. Please try again later."
	MsgServerError    = "Server error. The Cerebras service might be experiencing issues."
	MsgGeneric        = "Sorry, there was an error processing your request."
	MsgStreamRead     = "Error reading response stream. Please try again."
	MsgMissingKey     = "API key not found."
)

// MessageForStatus maps a relay HTTP status to the message shown to the user.
func MessageForStatus(code int) string {
	switch {
	case code == http.StatusUnauthorized:
		return MsgInvalidKey
	case code == http.StatusBadRequest:
		return MsgInvalidRequest
	case code == http.StatusTooManyRequests:
		return MsgRateLimited
	case code >= http.StatusInternalServerError:
		return MsgServerError
	default:
		return MsgGeneric
	}
}

// MessageForNotice renders an in-band error frame for the transcript.
func MessageForNotice(message string) string {
	if message == "" {
		return MsgGeneric
	}
	return "Error: " + message
}

// StatusError reports a relay response outside the 2xx range. Body holds the
// relay's error message when it sent one.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("relay returned status %d", e.StatusCode)
}
