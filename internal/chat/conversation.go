package chat

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"convocoach/internal/types"
)

const Greeting = "Hi! I'm your communication coach. Based on the analysis we just did, I'm here to help you understand your conversation better and provide guidance. What would you like to explore?"

const localIDPrefix = "local-"

// Conversation is the ordered transcript for one session. It starts with a
// synthetic greeting that real history replaces once any exists.
type Conversation struct {
	sessionID string
	messages  []*types.Message
	// streams maps a server messageId to the index of the assistant
	// message its chunks accumulate into.
	streams  map[string]int
	greeting bool
}

// IsLocal reports whether id names an optimistic message the server has
// not confirmed yet.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

func NewConversation(sessionID string) *Conversation {
	c := &Conversation{}
	c.Reset(sessionID)
	return c
}

// Reset drops every message and restores the greeting.
func (c *Conversation) Reset(sessionID string) {
	c.sessionID = strings.TrimSpace(sessionID)
	c.messages = []*types.Message{{
		SessionID: c.sessionID,
		Role:      types.MessageRoleAssistant,
		Content:   Greeting,
	}}
	c.streams = map[string]int{}
	c.greeting = true
}

func (c *Conversation) SessionID() string {
	return c.sessionID
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// HasGreeting reports whether index 0 is still the synthetic greeting.
func (c *Conversation) HasGreeting() bool {
	return c.greeting
}

func (c *Conversation) Messages() []*types.Message {
	out := make([]*types.Message, 0, len(c.messages))
	for _, msg := range c.messages {
		out = append(out, msg.Clone())
	}
	return out
}

func (c *Conversation) LastAssistant() *types.Message {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == types.MessageRoleAssistant {
			return c.messages[i].Clone()
		}
	}
	return nil
}

// ApplyChunk appends a streamed delta and returns the index it landed on.
// Chunks are correlated by messageID; without one, the delta extends the
// trailing assistant message unless that message is the only entry.
func (c *Conversation) ApplyChunk(messageID, chunk string) (int, bool) {
	if chunk == "" {
		return -1, false
	}
	messageID = strings.TrimSpace(messageID)
	if messageID != "" {
		if idx, ok := c.streams[messageID]; ok && idx < len(c.messages) {
			c.messages[idx].Content += chunk
			return idx, true
		}
		if idx := c.indexOf(messageID); idx >= 0 && c.messages[idx].Role == types.MessageRoleAssistant {
			c.messages[idx].Content += chunk
			c.streams[messageID] = idx
			return idx, true
		}
		idx := c.appendAssistant(messageID, chunk)
		c.streams[messageID] = idx
		return idx, true
	}

	last := len(c.messages) - 1
	if last > 0 && c.messages[last].Role == types.MessageRoleAssistant {
		c.messages[last].Content += chunk
		return last, true
	}
	return c.appendAssistant("", chunk), true
}

func (c *Conversation) appendAssistant(id, content string) int {
	now := time.Now().UTC()
	c.messages = append(c.messages, &types.Message{
		ID:        id,
		SessionID: c.sessionID,
		Role:      types.MessageRoleAssistant,
		Content:   content,
		CreatedAt: &now,
	})
	return len(c.messages) - 1
}

// AppendOptimistic adds a user message before the server confirms it and
// returns the local id used to confirm or roll it back.
func (c *Conversation) AppendOptimistic(content string, mediaURLs []string) string {
	id := localIDPrefix + uuid.NewString()
	now := time.Now().UTC()
	c.messages = append(c.messages, &types.Message{
		ID:        id,
		SessionID: c.sessionID,
		Role:      types.MessageRoleUser,
		Content:   content,
		MediaURLs: append([]string(nil), mediaURLs...),
		CreatedAt: &now,
	})
	return id
}

// Rollback removes a failed optimistic message.
func (c *Conversation) Rollback(localID string) bool {
	idx := c.indexOf(localID)
	if idx < 0 {
		return false
	}
	c.messages = slices.Delete(c.messages, idx, idx+1)
	c.reindexStreams(func(i int) int {
		if i > idx {
			return i - 1
		}
		return i
	})
	return true
}

// Confirm swaps the optimistic message for the stored one.
func (c *Conversation) Confirm(localID string, stored *types.Message) bool {
	idx := c.indexOf(localID)
	if idx < 0 || stored == nil {
		return false
	}
	msg := stored.Clone()
	if msg.CreatedAt == nil {
		msg.CreatedAt = c.messages[idx].CreatedAt
	}
	c.messages[idx] = msg
	return true
}

// Append adds a complete message at the tail, skipping ids already present.
func (c *Conversation) Append(msg *types.Message) bool {
	if msg == nil {
		return false
	}
	if msg.ID != "" && c.indexOf(msg.ID) >= 0 {
		return false
	}
	c.messages = append(c.messages, msg.Clone())
	return true
}

// ReplaceHistory installs the newest page. An empty page keeps the
// greeting. Messages added locally since the reset are kept after the page.
func (c *Conversation) ReplaceHistory(page []*types.Message) bool {
	if len(page) == 0 {
		return false
	}
	sorted := SortAscending(page)
	seen := make(map[string]struct{}, len(sorted))
	for _, msg := range sorted {
		if msg.ID != "" {
			seen[msg.ID] = struct{}{}
		}
	}
	start := 0
	if c.greeting {
		start = 1
	}
	tail := c.messages[start:]
	merged := make([]*types.Message, 0, len(sorted)+len(tail))
	merged = append(merged, sorted...)
	oldToNew := map[int]int{}
	for i, msg := range tail {
		if msg.ID != "" {
			if _, dup := seen[msg.ID]; dup {
				continue
			}
		}
		oldToNew[start+i] = len(merged)
		merged = append(merged, msg)
	}
	c.messages = merged
	c.greeting = false
	c.reindexStreams(func(i int) int {
		if next, ok := oldToNew[i]; ok {
			return next
		}
		return -1
	})
	return true
}

// PrependHistory inserts an older page before the current messages and
// returns how many were added.
func (c *Conversation) PrependHistory(page []*types.Message) int {
	sorted := SortAscending(page)
	older := make([]*types.Message, 0, len(sorted))
	for _, msg := range sorted {
		if msg.ID != "" && c.indexOf(msg.ID) >= 0 {
			continue
		}
		older = append(older, msg)
	}
	if len(older) == 0 {
		return 0
	}
	if c.greeting {
		// The greeting stands in for empty history; older history means
		// there was history after all.
		c.messages = c.messages[1:]
		c.greeting = false
		c.reindexStreams(func(i int) int { return i - 1 })
	}
	c.messages = append(older, c.messages...)
	shift := len(older)
	c.reindexStreams(func(i int) int { return i + shift })
	return shift
}

func (c *Conversation) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, msg := range c.messages {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

func (c *Conversation) reindexStreams(move func(int) int) {
	for id, idx := range c.streams {
		next := move(idx)
		if next < 0 || next >= len(c.messages) {
			delete(c.streams, id)
			continue
		}
		c.streams[id] = next
	}
}

// SortAscending returns clones of msgs ordered oldest first. Messages
// without a timestamp keep their relative order at the front.
func SortAscending(msgs []*types.Message) []*types.Message {
	out := make([]*types.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg != nil {
			out = append(out, msg.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *types.Message) int {
		return createdAt(a).Compare(createdAt(b))
	})
	return out
}

func createdAt(msg *types.Message) time.Time {
	if msg.CreatedAt == nil {
		return time.Time{}
	}
	return *msg.CreatedAt
}
