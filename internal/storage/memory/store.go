// Package memory is an in-process record store used for development and tests.
package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scopewise/estimation-backend/internal/storage"
)

type entry struct {
	data    storage.Record
	created time.Time
	seq     uint64
}

// Store keeps collections in maps guarded by a RWMutex. Records are copied
// on the way in and out so callers never share state with the store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*entry
	seq         uint64

	// FailInsert, when set, is consulted before every insert. Tests use it
	// to simulate partial write failures.
	FailInsert func(collection string, rec storage.Record) error
	// FailUpdate is the same for updates.
	FailUpdate func(collection, id string, partial storage.Record) error
}

func New() *Store {
	return &Store{collections: make(map[string]map[string]*entry)}
}

func (s *Store) Insert(ctx context.Context, collection string, rec storage.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.FailInsert != nil {
		if err := s.FailInsert(collection, rec); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]*entry)
		s.collections[collection] = coll
	}
	id := uuid.New().String()
	s.seq++
	coll[id] = &entry{data: copyRecord(rec), created: time.Now(), seq: s.seq}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.collections[collection][id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Document{ID: id, Data: copyRecord(e.data)}, nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]storage.Document, error) {
	return s.filter(ctx, collection, func(storage.Record) bool { return true })
}

func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	return s.filter(ctx, collection, func(r storage.Record) bool {
		v, ok := r[field]
		return ok && equalValues(v, value)
	})
}

func (s *Store) QueryByFieldIn(ctx context.Context, collection, field string, values []string) ([]storage.Document, error) {
	if len(values) == 0 {
		return nil, nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return s.filter(ctx, collection, func(r storage.Record) bool {
		v, ok := r[field].(string)
		if !ok {
			return false
		}
		_, hit := set[v]
		return hit
	})
}

func (s *Store) Update(ctx context.Context, collection, id string, partial storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailUpdate != nil {
		if err := s.FailUpdate(collection, id, partial); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.collections[collection][id]
	if !ok {
		return storage.ErrNotFound
	}
	for k, v := range copyRecord(partial) {
		e.data[k] = v
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Count reports how many records a collection holds.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *Store) filter(ctx context.Context, collection string, keep func(storage.Record) bool) ([]storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		doc storage.Document
		seq uint64
	}
	var hits []hit
	for id, e := range s.collections[collection] {
		if keep(e.data) {
			hits = append(hits, hit{doc: storage.Document{ID: id, Data: copyRecord(e.data)}, seq: e.seq})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })

	out := make([]storage.Document, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.doc)
	}
	return out, nil
}

func copyRecord(r storage.Record) storage.Record {
	out := make(storage.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// equalValues compares numbers by value regardless of their concrete type.
func equalValues(a, b any) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
