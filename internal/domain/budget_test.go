package domain_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/ember/internal/domain"
)

// textOfTokens returns content whose estimate is exactly n tokens.
func textOfTokens(n int) string {
	return strings.Repeat("abcd", n)
}

func conversation(n, tokensEach int) []domain.Message {
	messages := make([]domain.Message, 0, n)
	for i := range n {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		// Prefix keeps messages distinguishable without changing the estimate.
		body := fmt.Sprintf("%04d", i) + textOfTokens(tokensEach-1)
		messages = append(messages, domain.Message{Role: role, Content: body})
	}
	return messages
}

func TestTruncateHistory(t *testing.T) {
	budget := domain.DefaultBudget()

	t.Run("should keep only system messages when they exhaust the budget", func(t *testing.T) {
		messages := []domain.Message{
			{Role: domain.RoleSystem, Content: textOfTokens(4000)},
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleSystem, Content: textOfTokens(2000)},
		}

		result := domain.TruncateHistory(messages, budget)

		require.Equal(t, []domain.Message{messages[0], messages[2]}, result)
	})

	t.Run("should return an oversized lone system message untouched", func(t *testing.T) {
		messages := []domain.Message{{Role: domain.RoleSystem, Content: textOfTokens(9000)}}

		result := domain.TruncateHistory(messages, budget)

		require.Equal(t, messages, result)
	})

	t.Run("should return empty output for empty input", func(t *testing.T) {
		require.Empty(t, domain.TruncateHistory(nil, budget))
	})

	t.Run("should keep everything in order when it fits", func(t *testing.T) {
		messages := append([]domain.Message{{Role: domain.RoleSystem, Content: "be brief"}}, conversation(10, 50)...)

		result := domain.TruncateHistory(messages, budget)

		require.Equal(t, messages, result)
	})

	t.Run("should place system messages first", func(t *testing.T) {
		messages := []domain.Message{
			{Role: domain.RoleUser, Content: "first"},
			{Role: domain.RoleSystem, Content: "rules"},
			{Role: domain.RoleAssistant, Content: "second"},
		}

		result := domain.TruncateHistory(messages, budget)

		require.Equal(t, []domain.Message{messages[1], messages[0], messages[2]}, result)
	})

	t.Run("should retain the 59 most recent messages of 100 tokens", func(t *testing.T) {
		system := domain.Message{Role: domain.RoleSystem, Content: textOfTokens(50)}
		history := conversation(70, 100)
		messages := append([]domain.Message{system}, history...)

		result := domain.TruncateHistory(messages, budget)

		require.Len(t, result, 60)
		require.Equal(t, system, result[0])
		require.Equal(t, history[70-59:], result[1:])
	})

	t.Run("should retain all 50 messages when 50 of 100 tokens fit", func(t *testing.T) {
		system := domain.Message{Role: domain.RoleSystem, Content: textOfTokens(50)}
		history := conversation(50, 100)
		messages := append([]domain.Message{system}, history...)

		result := domain.TruncateHistory(messages, budget)

		require.Equal(t, messages, result)
	})

	t.Run("should truncate the newest message when nothing else fits", func(t *testing.T) {
		small := domain.Budget{MaxTokens: 30, ReservedForResponse: 10}
		messages := []domain.Message{
			{Role: domain.RoleUser, Content: "old"},
			{Role: domain.RoleUser, Content: textOfTokens(100)},
		}

		result := domain.TruncateHistory(messages, small)

		require.Len(t, result, 1)
		require.Equal(t, domain.RoleUser, result[0].Role)
		require.Equal(t, textOfTokens(20)+domain.TruncationMarker, result[0].Content)
	})

	t.Run("should be idempotent", func(t *testing.T) {
		cases := []struct {
			budget   domain.Budget
			messages []domain.Message
		}{
			{budget: budget, messages: append([]domain.Message{{Role: domain.RoleSystem, Content: "s"}}, conversation(90, 100)...)},
			{budget: domain.Budget{MaxTokens: 30, ReservedForResponse: 10}, messages: conversation(3, 200)},
			{budget: domain.Budget{MaxTokens: 10, ReservedForResponse: 20}, messages: conversation(3, 1)},
		}

		for _, c := range cases {
			once := domain.TruncateHistory(c.messages, c.budget)
			twice := domain.TruncateHistory(once, c.budget)
			require.Equal(t, once, twice)
		}
	})

	t.Run("should always return a contiguous suffix of non-system messages", func(t *testing.T) {
		for _, maxTokens := range []int{2100, 2500, 3333, 5000, 8000} {
			b := domain.Budget{MaxTokens: maxTokens, ReservedForResponse: 2000}
			history := conversation(40, 37)

			result := domain.TruncateHistory(history, b)

			require.NotEmpty(t, result)
			require.Equal(t, history[len(history)-len(result):], result, "max tokens %d", maxTokens)
		}
	})
}
