package stores

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/firekit-dev/firekit/internal/logging"
)

// Item is one document of a collection snapshot.
type Item[T any] struct {
	ID   string                 `json:"id"`
	Ref  *firestore.DocumentRef `json:"-"`
	Data T                      `json:"data"`
}

// CollectionStore holds the live result of a collection or query.
type CollectionStore[T any] struct {
	w     *Writable[[]Item[T]]
	query *firestore.Query
}

// NewCollectionStore listens to ref, which is a collection path, a
// *firestore.CollectionRef or a firestore.Query.
func NewCollectionStore[T any](client *firestore.Client, ref any, startWith []Item[T], opts ...Option) (*CollectionStore[T], error) {
	o := buildOptions(opts)
	if startWith == nil {
		startWith = []Item[T]{}
	}
	if o.static {
		return &CollectionStore[T]{w: NewWritable(startWith, nil)}, nil
	}
	if client == nil {
		logging.NewLogger(context.Background()).LogWarn("stores.collection", missingSDKWarning)
		return &CollectionStore[T]{w: NewWritable([]Item[T]{}, nil)}, nil
	}

	var q *firestore.Query
	switch r := ref.(type) {
	case string:
		if col := client.Collection(r); col != nil {
			q = &col.Query
		}
	case *firestore.CollectionRef:
		if r != nil {
			q = &r.Query
		}
	case firestore.Query:
		q = &r
	case *firestore.Query:
		q = r
	}
	if q == nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRef, ref)
	}
	return newCollectionStore(q, startWith, queryFeed[T](*q)), nil
}

func newCollectionStore[T any](q *firestore.Query, startWith []Item[T], f feed[[]Item[T]]) *CollectionStore[T] {
	return &CollectionStore[T]{
		w:     NewWritable(startWith, startFeed("collection", f)),
		query: q,
	}
}

func (s *CollectionStore[T]) Subscribe(run func([]Item[T])) func() {
	return s.w.Subscribe(run)
}

func (s *CollectionStore[T]) Get() []Item[T] {
	return s.w.Get()
}

func (s *CollectionStore[T]) Subscribers() int {
	return s.w.Subscribers()
}

// Ref is nil for static stores and when Firestore is missing.
func (s *CollectionStore[T]) Ref() *firestore.Query {
	return s.query
}
