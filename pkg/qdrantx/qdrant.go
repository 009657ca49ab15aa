// Package qdrantx adapts the qdrant client to the vector index used by the
// agent for conversation memory and catalog search.
package qdrantx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"

	contractx "github.com/gmoreiraDEV/basix-engine/agent/contract"
)

// idField keeps the caller supplied id; qdrant only accepts uuids or
// unsigned integers as point ids.
const idField = "_id"

var pointNamespace = uuid.MustParse("6f0c2f5e-6a59-4e0b-9a55-2d1c7f1b9a10")

// Config is read with the QDRANT prefix.
type Config struct {
	Host       string `split_words:"true" default:"localhost"`
	Port       int    `split_words:"true" default:"6334"`
	APIKey     string `envconfig:"API_KEY" split_words:"true"`
	UseTLS     bool   `envconfig:"USE_TLS" split_words:"true" default:"false"`
	VectorSize uint64 `split_words:"true" default:"1536"`
}

type Store struct {
	client     *qdrant.Client
	vectorSize uint64

	mu      sync.Mutex
	ensured map[string]struct{}
	indexed map[string]struct{}
}

var _ contractx.VectorIndex = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("qdrant host is required")
	}
	if cfg.VectorSize == 0 {
		return nil, errors.New("qdrant vector size must be > 0")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &Store{
		client:     client,
		vectorSize: cfg.VectorSize,
		ensured:    make(map[string]struct{}),
		indexed:    make(map[string]struct{}),
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Upsert(ctx context.Context, collection string, points []contractx.Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, collection); err != nil {
		return err
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload, err := toPayload(p)
		if err != nil {
			return fmt.Errorf("point %s: %w", p.ID, err)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(PointUUID(p.ID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert into %s: %w", collection, err)
	}
	return nil
}

// Latest scrolls points matching field == value ordered by the numeric
// payload field orderBy, highest first. Qdrant needs a range index on
// orderBy for ordered scrolls, so one is created on first use.
func (s *Store) Latest(ctx context.Context, collection, field string, value any, orderBy string, limit int) ([]contractx.Point, error) {
	if err := s.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}
	if err := s.ensureFieldIndex(ctx, collection, orderBy); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	cond, err := matchCondition(field, value)
	if err != nil {
		return nil, err
	}

	found, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{cond}},
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		OrderBy: &qdrant.OrderBy{
			Key:       orderBy,
			Direction: qdrant.Direction_Desc.Enum(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant ordered scroll %s by %s: %w", collection, orderBy, err)
	}
	return toPoints(found), nil
}

func toPoints(found []*qdrant.RetrievedPoint) []contractx.Point {
	out := make([]contractx.Point, 0, len(found))
	for _, rp := range found {
		payload := fromPayload(rp.GetPayload())
		id, _ := payload[idField].(string)
		if id == "" {
			id = rp.GetId().GetUuid()
		}
		delete(payload, idField)
		out = append(out, contractx.Point{ID: id, Payload: payload})
	}
	return out
}

func (s *Store) ensureFieldIndex(ctx context.Context, collection, field string) error {
	key := collection + "/" + field
	s.mu.Lock()
	_, ok := s.indexed[key]
	s.mu.Unlock()
	if ok {
		return nil
	}

	// payload numbers arrive as doubles after the JSON round trip in toPayload
	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		FieldName:      field,
		FieldType:      qdrant.FieldType_FieldTypeFloat.Enum(),
	})
	if err != nil {
		return fmt.Errorf("qdrant create field index %s: %w", key, err)
	}

	s.mu.Lock()
	s.indexed[key] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Store) ensureCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	_, ok := s.ensured[name]
	s.mu.Unlock()
	if ok {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant collection exists %s: %w", name, err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("qdrant create collection %s: %w", name, err)
		}
		log.Info().Str("collection", name).Uint64("size", s.vectorSize).Msg("qdrant collection created")
	}

	s.mu.Lock()
	s.ensured[name] = struct{}{}
	s.mu.Unlock()
	return nil
}

// PointUUID maps an arbitrary id to a stable uuid.
func PointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

func matchCondition(field string, value any) (*qdrant.Condition, error) {
	switch v := value.(type) {
	case string:
		return qdrant.NewMatch(field, v), nil
	case int:
		return qdrant.NewMatchInt(field, int64(v)), nil
	case int64:
		return qdrant.NewMatchInt(field, v), nil
	case bool:
		return qdrant.NewMatchBool(field, v), nil
	default:
		return nil, fmt.Errorf("unsupported match value %T for field %s", value, field)
	}
}

// toPayload round-trips the payload through JSON so every value is one of
// the kinds qdrant.TryValueMap accepts.
func toPayload(p contractx.Point) (map[string]*qdrant.Value, error) {
	plain := map[string]any{}
	if len(p.Payload) > 0 {
		raw, err := json.Marshal(p.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		if err := json.Unmarshal(raw, &plain); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	plain[idField] = p.ID
	return qdrant.TryValueMap(plain)
}

func fromPayload(in map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return fromPayload(kind.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = fromValue(item)
		}
		return out
	default:
		return nil
	}
}
