package chat

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/davidbz/ember/internal/domain"
)

// Transcript errors.
var (
	ErrEntryFinalized = errors.New("transcript entry is finalized")
)

// Entry is one visible transcript line.
type Entry struct {
	ID      string
	Role    domain.Role
	Content string

	// Stats is set on assistant responses only.
	Stats *Stats

	// IsError marks failure notices; they are never sent upstream.
	IsError bool

	// Final entries are immutable.
	Final bool
}

// Transcript is the ordered conversation shown to the user.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{entries: make([]Entry, 0)}
}

// Add appends a finalized message.
func (t *Transcript) Add(role domain.Role, content string) Entry {
	return t.append(Entry{ID: uuid.NewString(), Role: role, Content: content, Final: true})
}

// AddError appends a finalized failure notice.
func (t *Transcript) AddError(content string) Entry {
	return t.append(Entry{ID: uuid.NewString(), Role: domain.RoleAssistant, Content: content, IsError: true, Final: true})
}

// Upsert replaces the entry with the same ID, or appends it. Replacing a
// finalized entry fails with ErrEntryFinalized.
func (t *Transcript) Upsert(entry Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].ID != entry.ID {
			continue
		}
		if t.entries[i].Final {
			return ErrEntryFinalized
		}
		t.entries[i] = entry
		return nil
	}

	t.entries = append(t.entries, entry)
	return nil
}

// Entries returns a copy of all entries in order.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// History returns the conversation to send upstream: failure notices and
// empty assistant placeholders are left out.
func (t *Transcript) History() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	messages := make([]domain.Message, 0, len(t.entries))
	for _, e := range t.entries {
		if e.IsError || (e.Role == domain.RoleAssistant && e.Content == "") {
			continue
		}
		messages = append(messages, domain.Message{Role: e.Role, Content: e.Content})
	}
	return messages
}

func (t *Transcript) append(entry Entry) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, entry)
	return entry
}
