// Package catalog mirrors booking reference data into the vector index.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
	"github.com/gmoreiraDEV/basix-engine/pkg/booking"
)

const (
	DefaultTTL = 6 * time.Hour

	KeyProfessionals = "professionals"

	DefaultProfessionalsCollection = "professionals_catalog"
	DefaultServicesCollection      = "services_catalog"
)

// Config is read with the CATALOG prefix.
type Config struct {
	TTL                     time.Duration `envconfig:"TTL" default:"6h"`
	ProfessionalsCollection string        `split_words:"true" default:"professionals_catalog"`
	ServicesCollection      string        `split_words:"true" default:"services_catalog"`
}

type Option func(*Sync)

func WithTTL(ttl time.Duration) Option {
	return func(s *Sync) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sync) {
		if now != nil {
			s.now = now
		}
	}
}

func WithCollections(professionals, services string) Option {
	return func(s *Sync) {
		if v := strings.TrimSpace(professionals); v != "" {
			s.professionalsCollection = v
		}
		if v := strings.TrimSpace(services); v != "" {
			s.servicesCollection = v
		}
	}
}

// Sync pushes catalog snapshots into the index at most once per TTL and key.
type Sync struct {
	index    contractx.VectorIndex
	embedder contractx.Embedder
	ttl      time.Duration
	now      func() time.Time

	professionalsCollection string
	servicesCollection      string

	mu           sync.Mutex
	lastSyncedAt map[string]time.Time
}

func New(index contractx.VectorIndex, embedder contractx.Embedder, opts ...Option) (*Sync, error) {
	if index == nil {
		return nil, errors.New("vector index is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	s := &Sync{
		index:                   index,
		embedder:                embedder,
		ttl:                     DefaultTTL,
		now:                     time.Now,
		professionalsCollection: DefaultProfessionalsCollection,
		servicesCollection:      DefaultServicesCollection,
		lastSyncedAt:            make(map[string]time.Time),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func ServicesKey(professionalID int64) string {
	return fmt.Sprintf("services_%d", professionalID)
}

// SyncProfessionals reports whether an upsert happened.
func (s *Sync) SyncProfessionals(ctx context.Context, list []booking.Professional) (bool, error) {
	if len(list) == 0 {
		return false, nil
	}
	return s.sync(ctx, KeyProfessionals, s.professionalsCollection, len(list), func(i int) (string, string, map[string]any) {
		p := list[i]
		text := joinText(p.Name, p.Nickname, p.Category, strings.Join(p.Tags, " "))
		return fmt.Sprintf("%d", p.ID), text, map[string]any{
			"kind":      "professional",
			"id":        p.ID,
			"nome":      p.Name,
			"apelido":   p.Nickname,
			"categoria": p.Category,
			"tags":      p.Tags,
			"text":      text,
		}
	})
}

func (s *Sync) SyncServices(ctx context.Context, professionalID int64, list []booking.Service) (bool, error) {
	if len(list) == 0 {
		return false, nil
	}
	return s.sync(ctx, ServicesKey(professionalID), s.servicesCollection, len(list), func(i int) (string, string, map[string]any) {
		svc := list[i]
		text := joinText(svc.Name, svc.Description, svc.Category, strings.Join(svc.Tags, " "))
		return fmt.Sprintf("%d_%d", professionalID, svc.ID), text, map[string]any{
			"kind":             "service",
			"id":               svc.ID,
			"profissionalId":   professionalID,
			"nome":             svc.Name,
			"descricao":        svc.Description,
			"categoria":        svc.Category,
			"duracaoEmMinutos": svc.DurationMinutes,
			"valor":            svc.Price,
			"tags":             svc.Tags,
			"text":             text,
		}
	})
}

// LastSyncedAt returns the completion time of the latest sync for key.
func (s *Sync) LastSyncedAt(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.lastSyncedAt[key]
	return at, ok
}

func (s *Sync) fresh(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastSyncedAt[key]
	return ok && now.Sub(last) <= s.ttl
}

func (s *Sync) sync(
	ctx context.Context,
	key, collection string,
	n int,
	item func(i int) (id, text string, payload map[string]any),
) (bool, error) {
	if s.fresh(key, s.now()) {
		log.Debug().Str("key", key).Msg("catalog sync skipped, still fresh")
		return false, nil
	}

	points := make([]contractx.Point, 0, n)
	for i := 0; i < n; i++ {
		id, text, payload := item(i)
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return false, fmt.Errorf("%w: embed catalog item %s: %v", contractx.ErrExternalService, id, err)
		}
		points = append(points, contractx.Point{ID: id, Vector: vec, Payload: payload})
	}

	if err := s.index.Upsert(ctx, collection, points); err != nil {
		return false, fmt.Errorf("%w: upsert catalog %s: %v", contractx.ErrExternalService, key, err)
	}

	done := s.now()
	s.mu.Lock()
	if prev, ok := s.lastSyncedAt[key]; !ok || done.After(prev) {
		s.lastSyncedAt[key] = done
	}
	s.mu.Unlock()

	log.Info().Str("key", key).Str("collection", collection).Int("points", len(points)).Msg("catalog synced")
	return true, nil
}

func joinText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
