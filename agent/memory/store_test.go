package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

// memIndex filters by exact payload equality. points are kept in insertion
// order and Latest sorts by the order field the way the index would.
type memIndex struct {
	points map[string][]contractx.Point
	fail   error
}

func (m *memIndex) Upsert(_ context.Context, collection string, points []contractx.Point) error {
	if m.fail != nil {
		return m.fail
	}
	if m.points == nil {
		m.points = map[string][]contractx.Point{}
	}
	// round trip the payload the way a real index would
	for _, p := range points {
		raw, _ := json.Marshal(p.Payload)
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)
		m.points[collection] = append(m.points[collection], contractx.Point{ID: p.ID, Payload: payload})
	}
	return nil
}

func (m *memIndex) Latest(_ context.Context, collection, field string, value any, orderBy string, limit int) ([]contractx.Point, error) {
	var out []contractx.Point
	for _, p := range m.points[collection] {
		if p.Payload[field] == value {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].Payload[orderBy].(float64)
		b, _ := out[j].Payload[orderBy].(float64)
		return a > b
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type staticEmbedder struct{}

func (staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func TestRecentReturnsLatestMessagesInOrder(t *testing.T) {
	t.Parallel()

	s, err := New(&memIndex{}, staticEmbedder{}, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	base := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		err := s.Append(ctx, contractx.MemoryRecord{
			UserID:    "9999",
			SessionID: "s1",
			Messages: []statex.Message{
				{Role: statex.RoleUser, Content: "pergunta", Timestamp: at},
				{Role: statex.RoleAssistant, Content: "resposta", Timestamp: at.Add(time.Second)},
			},
			Metadata:  map[string]any{"intent": "info", "finish_session": false},
			CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	_ = s.Append(ctx, contractx.MemoryRecord{
		UserID:   "other",
		Messages: []statex.Message{{Role: statex.RoleUser, Content: "x", Timestamp: base.Add(time.Hour)}},
	})

	got, err := s.Recent(ctx, "9999", 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(Recent()) = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("Recent() not ordered: %v before %v", got[i].Timestamp, got[i-1].Timestamp)
		}
	}
	last := got[len(got)-1]
	if last.Role != statex.RoleAssistant || !last.Timestamp.Equal(base.Add(3*time.Minute+time.Second)) {
		t.Fatalf("last message = %+v", last)
	}
}

func TestRecentKeepsNewestAcrossManyRecords(t *testing.T) {
	t.Parallel()

	idx := &memIndex{}
	s, _ := New(idx, staticEmbedder{}, "")
	ctx := context.Background()
	base := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 300; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		err := s.Append(ctx, contractx.MemoryRecord{
			UserID:    "9999",
			Messages:  []statex.Message{{Role: statex.RoleUser, Content: fmt.Sprintf("msg %d", i), Timestamp: at}},
			CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	// shuffle storage order so only the order field decides
	pts := idx.points[DefaultCollection]
	for i, j := 0, len(pts)-1; i < j; i, j = i+2, j-2 {
		pts[i], pts[j] = pts[j], pts[i]
	}

	got, err := s.Recent(ctx, "9999", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 || got[0].Content != "msg 298" || got[1].Content != "msg 299" {
		t.Fatalf("Recent() = %+v, want msg 298 then msg 299", got)
	}
}

func TestAppendWrapsIndexFailure(t *testing.T) {
	t.Parallel()

	s, _ := New(&memIndex{fail: errors.New("down")}, staticEmbedder{}, "mem")
	err := s.Append(context.Background(), contractx.MemoryRecord{
		UserID:   "9999",
		Messages: []statex.Message{{Role: statex.RoleUser, Content: "oi"}},
	})
	if !errors.Is(err, contractx.ErrPersistence) {
		t.Fatalf("Append() error = %v, want ErrPersistence", err)
	}
}

func TestTranscript(t *testing.T) {
	t.Parallel()

	got := Transcript([]statex.Message{
		{Role: statex.RoleUser, Content: "oi"},
		{Role: statex.RoleAssistant, Content: ""},
		{Role: statex.RoleAssistant, Content: "olá!"},
	})
	if got != "user: oi\nassistant: olá!" {
		t.Fatalf("Transcript() = %q", got)
	}
}
