// Package history persists per-session chat history in Redis.
//
// Histories are stored as JSON arrays under "{channel}_{session}_history".
// A missing key reads as an empty history, never an error. Writes replace
// the whole value; per-key atomicity comes from Redis itself, concurrent
// requests for the same session can still interleave read-modify-write.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/registrybot/internal/chat"
)

// ErrDecodeFailed indicates a stored history value that is not valid JSON.
var ErrDecodeFailed = errors.New("failed to decode stored history")

// Client is the subset of the go-redis API the store uses.
// *redis.Client satisfies it; tests substitute a fake.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store reads and writes session histories.
type Store struct {
	client Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore creates a history store. A zero ttl keeps histories forever.
func NewStore(client Client, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the Redis key for a channel-qualified session.
func Key(channel, sessionID string) string {
	return fmt.Sprintf("%s_%s_history", channel, sessionID)
}

// storedTurn accepts both the current turn shape and the loose map
// shapes ({"user_input": ...} / {"bot_response": ...}) written by
// earlier deployments. Conversion to chat.Turn happens here and only
// here.
type storedTurn struct {
	Role        string `json:"role,omitempty"`
	Content     string `json:"content,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
	UserInput   string `json:"user_input,omitempty"`
	BotResponse string `json:"bot_response,omitempty"`
}

func (st storedTurn) turns() []chat.Turn {
	if st.Role != "" || (st.Content != "" && st.UserInput == "" && st.BotResponse == "") {
		role := chat.Role(st.Role)
		if role != chat.RoleUser && role != chat.RoleAssistant {
			role = chat.RoleAssistant
		}
		return []chat.Turn{{Role: role, Content: st.Content, RawResponse: st.RawResponse}}
	}

	var out []chat.Turn
	if st.UserInput != "" {
		out = append(out, chat.Turn{Role: chat.RoleUser, Content: st.UserInput})
	}
	if st.BotResponse != "" {
		out = append(out, chat.Turn{Role: chat.RoleAssistant, Content: st.BotResponse})
	}
	return out
}

// Get loads the history for a session. A missing key yields an empty
// history and no error.
func (s *Store) Get(ctx context.Context, channel, sessionID string) ([]chat.Turn, error) {
	raw, err := s.client.Get(ctx, Key(channel, sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var stored []storedTurn
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	turns := make([]chat.Turn, 0, len(stored))
	for _, st := range stored {
		turns = append(turns, st.turns()...)
	}
	return turns, nil
}

// Set replaces the stored history for a session.
func (s *Store) Set(ctx context.Context, channel, sessionID string, turns []chat.Turn) error {
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	key := Key(channel, sessionID)
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}

	s.logger.Debug("history persisted",
		zap.String("key", key),
		zap.Int("turns", len(turns)))
	return nil
}

// Clear deletes the stored history for a session.
func (s *Store) Clear(ctx context.Context, channel, sessionID string) error {
	if err := s.client.Del(ctx, Key(channel, sessionID)).Err(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}
