// Package memory stores conversation turns in the vector index, keyed by
// user, and reloads the most recent messages for context.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

const (
	DefaultCollection = "conversation_memory"

	// orderField holds the record time in unix milliseconds so the index
	// can return the newest records first.
	orderField = "created_at_ms"
)

type Store struct {
	index      contractx.VectorIndex
	embedder   contractx.Embedder
	collection string
	newID      func() string
}

var _ contractx.ContextStore = (*Store)(nil)

func New(index contractx.VectorIndex, embedder contractx.Embedder, collection string) (*Store, error) {
	if index == nil {
		return nil, errors.New("vector index is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if strings.TrimSpace(collection) == "" {
		collection = DefaultCollection
	}
	return &Store{
		index:      index,
		embedder:   embedder,
		collection: collection,
		newID:      uuid.NewString,
	}, nil
}

func (s *Store) Append(ctx context.Context, rec contractx.MemoryRecord) error {
	if strings.TrimSpace(rec.UserID) == "" {
		return fmt.Errorf("%w: user id is empty", contractx.ErrPersistence)
	}
	if len(rec.Messages) == 0 {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	encoded, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("%w: marshal messages: %v", contractx.ErrPersistence, err)
	}

	text := Transcript(rec.Messages)
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: embed conversation: %v", contractx.ErrPersistence, err)
	}

	payload := map[string]any{
		"user_id":    rec.UserID,
		"session_id": rec.SessionID,
		"messages":   string(encoded),
		"text":       text,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		orderField:   rec.CreatedAt.UnixMilli(),
	}
	if len(rec.Metadata) > 0 {
		payload["metadata"] = rec.Metadata
	}

	err = s.index.Upsert(ctx, s.collection, []contractx.Point{{
		ID:      s.newID(),
		Vector:  vec,
		Payload: payload,
	}})
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrPersistence, err)
	}
	return nil
}

// Recent returns the last limit messages stored for userID, oldest first.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]statex.Message, error) {
	if strings.TrimSpace(userID) == "" || limit <= 0 {
		return nil, nil
	}
	// every record holds at least one message, so limit records are enough
	points, err := s.index.Latest(ctx, s.collection, "user_id", userID, orderField, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query memory: %v", contractx.ErrExternalService, err)
	}

	var msgs []statex.Message
	for _, p := range points {
		raw, _ := p.Payload["messages"].(string)
		if raw == "" {
			continue
		}
		var decoded []statex.Message
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			continue
		}
		msgs = append(msgs, decoded...)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Transcript renders messages as "role: content" lines.
func Transcript(msgs []statex.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}
