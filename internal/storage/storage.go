// internal/storage/storage.go
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"photocurate/internal/models"
)

var ErrNotFound = errors.New("record not found")

type Collection string

const (
	Photos       Collection = "photos"
	Variations   Collection = "variations"
	Approvals    Collection = "approvals"
	Publications Collection = "publications"
)

// Collections lists every collection a backend must serve.
var Collections = []Collection{Photos, Variations, Approvals, Publications}

// Backend persists opaque record bodies keyed by id. List returns bodies in
// insertion order; Put on an existing id replaces the body in place. Delete
// of an absent id is not an error.
type Backend interface {
	Get(ctx context.Context, c Collection, id string) ([]byte, error)
	List(ctx context.Context, c Collection) ([][]byte, error)
	Put(ctx context.Context, c Collection, id string, body []byte) error
	Delete(ctx context.Context, c Collection, id string) error
	Close() error
}

type Record interface {
	RecordID() string
}

// Table is a typed view of one collection.
type Table[T Record] struct {
	backend    Backend
	collection Collection
}

func NewTable[T Record](backend Backend, c Collection) *Table[T] {
	return &Table[T]{backend: backend, collection: c}
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	op := "storage.Get(" + string(t.collection) + ")"
	var rec T
	body, err := t.backend.Get(ctx, t.collection, id)
	if err != nil {
		return rec, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// List returns records in insertion order. A nil filter keeps everything.
func (t *Table[T]) List(ctx context.Context, filter func(T) bool) ([]T, error) {
	op := "storage.List(" + string(t.collection) + ")"
	bodies, err := t.backend.List(ctx, t.collection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]T, 0, len(bodies))
	for _, body := range bodies {
		var rec T
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if filter == nil || filter(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *Table[T]) Put(ctx context.Context, rec T) error {
	op := "storage.Put(" + string(t.collection) + ")"
	id := rec.RecordID()
	if id == "" {
		return fmt.Errorf("%s: empty record id", op)
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := t.backend.Put(ctx, t.collection, id, body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	op := "storage.Delete(" + string(t.collection) + ")"
	if err := t.backend.Delete(ctx, t.collection, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type Storage struct {
	Photos       *Table[models.Photo]
	Variations   *Table[models.Variation]
	Approvals    *Table[models.Approval]
	Publications *Table[models.Publication]

	backend Backend
}

func New(backend Backend) *Storage {
	return &Storage{
		Photos:       NewTable[models.Photo](backend, Photos),
		Variations:   NewTable[models.Variation](backend, Variations),
		Approvals:    NewTable[models.Approval](backend, Approvals),
		Publications: NewTable[models.Publication](backend, Publications),
		backend:      backend,
	}
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg models.StorageConfig) (*Storage, error) {
	const op = "storage.Open"

	var (
		backend Backend
		err     error
	)
	switch cfg.Driver {
	case "", "memory":
		backend = NewMemory()
	case "file":
		backend, err = NewFile(cfg.Path)
	case "postgres":
		backend, err = NewPostgres(ctx, cfg.DatabaseURL)
	case "redis":
		backend, err = NewRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		err = fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(backend), nil
}

func (s *Storage) Close() error {
	return s.backend.Close()
}
