// Package firestoredb adapts a Cloud Firestore client to storage.Store.
package firestoredb

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/scopewise/estimation-backend/internal/storage"
)

// maxInValues is Firestore's limit on the size of an "in" filter.
const maxInValues = 30

type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Insert(ctx context.Context, collection string, rec storage.Record) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, map[string]interface{}(rec))
	if err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return toDocument(snap), nil
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]storage.Document, error) {
	snaps, err := s.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return toDocuments(snaps), nil
}

func (s *Store) QueryByField(ctx context.Context, collection, field string, value any) ([]storage.Document, error) {
	snaps, err := s.client.Collection(collection).Where(field, "==", value).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", collection, field, err)
	}
	return toDocuments(snaps), nil
}

func (s *Store) QueryByFieldIn(ctx context.Context, collection, field string, values []string) ([]storage.Document, error) {
	var out []storage.Document
	for start := 0; start < len(values); start += maxInValues {
		end := start + maxInValues
		if end > len(values) {
			end = len(values)
		}
		snaps, err := s.client.Collection(collection).Where(field, "in", values[start:end]).Documents(ctx).GetAll()
		if err != nil {
			return nil, fmt.Errorf("failed to query %s by %s: %w", collection, field, err)
		}
		out = append(out, toDocuments(snaps)...)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, partial storage.Record) error {
	if len(partial) == 0 {
		return nil
	}
	updates := make([]firestore.Update, 0, len(partial))
	for k, v := range partial {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}

	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete removes the document. Firestore deletes are idempotent, so a missing
// document is reported by a preceding Get.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	ref := s.client.Collection(collection).Doc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Ping issues a cheap read to verify connectivity.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection("projects").Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *Store) Close() error {
	return s.client.Close()
}

func toDocument(snap *firestore.DocumentSnapshot) *storage.Document {
	return &storage.Document{ID: snap.Ref.ID, Data: storage.Record(snap.Data())}
}

func toDocuments(snaps []*firestore.DocumentSnapshot) []storage.Document {
	out := make([]storage.Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, *toDocument(snap))
	}
	return out
}
