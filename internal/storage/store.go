// Package storage defines the document-oriented record store the estimation
// service persists to. Backends live in the memory, postgres and firestoredb
// subpackages; none of them offers multi-document transactions.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// Record is a schemaless document body.
type Record map[string]any

// Document is a stored record together with its store-assigned ID.
type Document struct {
	ID   string
	Data Record
}

type Store interface {
	Insert(ctx context.Context, collection string, rec Record) (string, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	GetAll(ctx context.Context, collection string) ([]Document, error)
	// QueryByField returns documents whose field equals value exactly.
	QueryByField(ctx context.Context, collection, field string, value any) ([]Document, error)
	// QueryByFieldIn returns documents whose string field is a member of values.
	QueryByFieldIn(ctx context.Context, collection, field string, values []string) ([]Document, error)
	// Update merges partial into the stored record. Missing documents yield ErrNotFound.
	Update(ctx context.Context, collection, id string, partial Record) error
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
}
