// Package sse implements the relay's Server-Sent Events wire format: frames
// are encoded as "data: <json>\n\n" records terminated by "data: [DONE]".
// The reader side parses events from any byte stream and the codec turns
// event payloads back into domain frames.
//
// Wire format follows the WHATWG server-sent events standard:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DoneSentinel is the data payload of the terminal record.
const DoneSentinel = "[DONE]"

// Event represents a single parsed SSE event, delimited by a blank line.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is all "data:" lines of the event joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}
