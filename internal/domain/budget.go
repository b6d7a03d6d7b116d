package domain

// Default budget applied by the relay.
const (
	DefaultMaxContextTokens       = 8000
	DefaultReservedResponseTokens = 2000
)

// TruncationMarker is appended to a message cut short to fit the budget.
const TruncationMarker = "... [truncated due to token limit]"

// Budget bounds how much history is forwarded upstream.
type Budget struct {
	MaxTokens           int
	ReservedForResponse int
}

// DefaultBudget returns the 8000/2000 budget.
func DefaultBudget() Budget {
	return Budget{
		MaxTokens:           DefaultMaxContextTokens,
		ReservedForResponse: DefaultReservedResponseTokens,
	}
}

// TruncateHistory trims messages to fit budget. System messages are always
// kept, in order, and come first. The remaining messages are admitted from
// newest to oldest until one does not fit; the result keeps them in
// chronological order, so it is always a suffix of the non-system messages.
// If not even the newest message fits, a prefix of it is kept with
// TruncationMarker appended.
func TruncateHistory(messages []Message, budget Budget) []Message {
	system := make([]Message, 0, 1)
	other := make([]Message, 0, len(messages))
	systemTokens := 0

	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg)
			systemTokens += EstimateTokens(msg.Content)
			continue
		}
		other = append(other, msg)
	}

	available := budget.MaxTokens - systemTokens - budget.ReservedForResponse
	if available <= 0 {
		return system
	}

	tokensUsed := 0
	first := len(other)
	var truncated *Message

	for i := len(other) - 1; i >= 0; i-- {
		cost := EstimateTokens(other[i].Content)
		if tokensUsed+cost <= available {
			tokensUsed += cost
			first = i
			continue
		}

		if first == len(other) {
			cut := other[i]
			cut.Content = truncateRunes(cut.Content, available*charsPerToken) + TruncationMarker
			truncated = &cut
		}
		break
	}

	result := make([]Message, 0, len(system)+len(other)-first+1)
	result = append(result, system...)
	if truncated != nil {
		return append(result, *truncated)
	}
	return append(result, other[first:]...)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
