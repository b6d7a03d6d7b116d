package domain

// FrameKind discriminates the wire frames a relay stream is made of.
type FrameKind int

// Frame kinds.
const (
	FrameContent FrameKind = iota + 1
	FrameUsage
	FrameError
	FrameDone
)

func (k FrameKind) String() string {
	switch k {
	case FrameContent:
		return "content"
	case FrameUsage:
		return "usage"
	case FrameError:
		return "error"
	case FrameDone:
		return "done"
	default:
		return "unknown"
	}
}

// Frame is one record on the relay-to-client stream. The set of
// implementations is closed: ContentDelta, UsageRecord, ErrorNotice, Done.
type Frame interface {
	Kind() FrameKind
	frame()
}

// ContentDelta carries one fragment of assistant text.
type ContentDelta struct {
	ID    string
	Model string
	Text  string
}

// UsageRecord carries the relay-measured statistics, sent once after the
// last ContentDelta. Times are in seconds.
type UsageRecord struct {
	CompletionTokens int
	TotalTokens      int
	CompletionTime   float64
	TotalTime        float64
}

// ErrorNotice reports an upstream failure after streaming began.
type ErrorNotice struct {
	Message string
}

// Done terminates the stream.
type Done struct{}

func (ContentDelta) Kind() FrameKind { return FrameContent }
func (UsageRecord) Kind() FrameKind  { return FrameUsage }
func (ErrorNotice) Kind() FrameKind  { return FrameError }
func (Done) Kind() FrameKind         { return FrameDone }

func (ContentDelta) frame() {}
func (UsageRecord) frame()  {}
func (ErrorNotice) frame()  {}
func (Done) frame()         {}
