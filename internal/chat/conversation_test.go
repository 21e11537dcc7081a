package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convocoach/internal/types"
)

func at(minute int) *time.Time {
	ts := time.Date(2026, 2, 1, 10, minute, 0, 0, time.UTC)
	return &ts
}

func msg(id string, role types.MessageRole, content string, minute int) *types.Message {
	return &types.Message{ID: id, SessionID: "s1", Role: role, Content: content, CreatedAt: at(minute)}
}

func TestNewConversationStartsWithGreeting(t *testing.T) {
	conv := NewConversation("s1")
	require.Equal(t, 1, conv.Len())
	assert.True(t, conv.HasGreeting())
	first := conv.Messages()[0]
	assert.Equal(t, types.MessageRoleAssistant, first.Role)
	assert.Equal(t, Greeting, first.Content)
}

func TestApplyChunkConcatenatesDeltas(t *testing.T) {
	conv := NewConversation("s1")
	conv.AppendOptimistic("why did she say that?", nil)

	deltas := []string{"It ", "", "sounds like ", "she felt ", "", "unheard."}
	for _, d := range deltas {
		conv.ApplyChunk("m-42", d)
	}

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m-42", msgs[2].ID)
	assert.Equal(t, strings.Join(deltas, ""), msgs[2].Content)
	assert.Equal(t, Greeting, msgs[0].Content, "greeting untouched")
}

func TestApplyChunkEmptyDeltaIsNoop(t *testing.T) {
	conv := NewConversation("s1")
	idx, changed := conv.ApplyChunk("m1", "")
	assert.Equal(t, -1, idx)
	assert.False(t, changed)
	assert.Equal(t, 1, conv.Len())
}

func TestApplyChunkNewMessageIDStartsNewMessage(t *testing.T) {
	conv := NewConversation("s1")
	conv.ApplyChunk("a", "first")
	conv.ApplyChunk("b", "second")
	conv.ApplyChunk("a", " more")

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first more", msgs[1].Content)
	assert.Equal(t, "second", msgs[2].Content)
}

func TestApplyChunkPositionalFallbackProtectsGreeting(t *testing.T) {
	conv := NewConversation("s1")

	idx, _ := conv.ApplyChunk("", "Hello")
	assert.Equal(t, 1, idx, "lone greeting must not be extended")
	idx, _ = conv.ApplyChunk("", " there")
	assert.Equal(t, 1, idx)

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Greeting, msgs[0].Content)
	assert.Equal(t, "Hello there", msgs[1].Content)

	conv.AppendOptimistic("ok", nil)
	idx, _ = conv.ApplyChunk("", "Next")
	assert.Equal(t, 3, idx, "user tail starts a new assistant message")
}

func TestOptimisticSendRollbackAndConfirm(t *testing.T) {
	conv := NewConversation("s1")
	failed := conv.AppendOptimistic("lost", nil)
	require.Equal(t, 2, conv.Len())
	assert.True(t, conv.Rollback(failed))
	assert.Equal(t, 1, conv.Len())
	assert.False(t, conv.Rollback(failed))

	sent := conv.AppendOptimistic("kept", []string{"https://cdn/x.png"})
	assert.True(t, conv.Confirm(sent, &types.Message{ID: "srv-1", Role: types.MessageRoleUser, Content: "kept"}))
	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "srv-1", msgs[1].ID)
	assert.NotNil(t, msgs[1].CreatedAt)
}

func TestRollbackKeepsStreamCorrelation(t *testing.T) {
	conv := NewConversation("s1")
	local := conv.AppendOptimistic("q", nil)
	conv.ApplyChunk("m1", "a")
	conv.Rollback(local)
	conv.ApplyChunk("m1", "b")

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "ab", msgs[1].Content)
}

func TestReplaceHistoryEmptyKeepsGreeting(t *testing.T) {
	conv := NewConversation("s1")
	assert.False(t, conv.ReplaceHistory(nil))
	assert.True(t, conv.HasGreeting())
	assert.Equal(t, Greeting, conv.Messages()[0].Content)
}

func TestReplaceHistorySortsAscending(t *testing.T) {
	conv := NewConversation("s1")
	page := []*types.Message{
		msg("m3", types.MessageRoleAssistant, "c", 3),
		msg("m2", types.MessageRoleUser, "b", 2),
		msg("m1", types.MessageRoleAssistant, "a", 1),
	}
	require.True(t, conv.ReplaceHistory(page))
	assert.False(t, conv.HasGreeting())

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestReplaceHistoryKeepsLocalTail(t *testing.T) {
	conv := NewConversation("s1")
	conv.ApplyChunk("m9", "streaming")
	conv.ReplaceHistory([]*types.Message{msg("m1", types.MessageRoleUser, "old", 1)})
	conv.ApplyChunk("m9", " on")

	msgs := conv.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "streaming on", msgs[1].Content)
}

func TestPrependHistoryDedupesAndShifts(t *testing.T) {
	conv := NewConversation("s1")
	conv.ReplaceHistory([]*types.Message{
		msg("m4", types.MessageRoleAssistant, "d", 4),
		msg("m3", types.MessageRoleUser, "c", 3),
	})
	conv.ApplyChunk("m5", "e")

	added := conv.PrependHistory([]*types.Message{
		msg("m3", types.MessageRoleUser, "c", 3),
		msg("m2", types.MessageRoleAssistant, "b", 2),
		msg("m1", types.MessageRoleUser, "a", 1),
	})
	assert.Equal(t, 2, added)

	conv.ApplyChunk("m5", "f")
	msgs := conv.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "ef", msgs[4].Content)
}

func TestLastAssistant(t *testing.T) {
	conv := NewConversation("s1")
	conv.AppendOptimistic("q", nil)
	last := conv.LastAssistant()
	require.NotNil(t, last)
	assert.Equal(t, Greeting, last.Content)
}
