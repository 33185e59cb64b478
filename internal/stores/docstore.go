package stores

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/firekit-dev/firekit/internal/logging"
)

const missingSDKWarning = "Firestore is not initialized. Are you missing the Firestore client in the platform setup?"

var ErrInvalidRef = errors.New("invalid firestore reference")

type options struct {
	static bool
}

type Option func(*options)

// Static builds a store that only ever holds its start value and opens no
// listener, for one-shot renders.
func Static() Option {
	return func(o *options) { o.static = true }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DocStore holds the live data of one Firestore document. The value is nil
// while the document does not exist.
type DocStore[T any] struct {
	w   *Writable[*T]
	ref *firestore.DocumentRef
}

// NewDocStore listens to ref, a document path or *firestore.DocumentRef.
func NewDocStore[T any](client *firestore.Client, ref any, startWith *T, opts ...Option) (*DocStore[T], error) {
	o := buildOptions(opts)
	if o.static {
		return &DocStore[T]{w: NewWritable(startWith, nil)}, nil
	}
	if client == nil {
		logging.NewLogger(context.Background()).LogWarn("stores.doc", missingSDKWarning)
		return &DocStore[T]{w: NewWritable[*T](nil, nil)}, nil
	}

	var docRef *firestore.DocumentRef
	switch r := ref.(type) {
	case string:
		docRef = client.Doc(r)
	case *firestore.DocumentRef:
		docRef = r
	}
	if docRef == nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRef, ref)
	}
	return newDocStore(docRef, startWith, documentFeed[T](docRef)), nil
}

func newDocStore[T any](ref *firestore.DocumentRef, startWith *T, f feed[*T]) *DocStore[T] {
	name := "document"
	if ref != nil {
		name = ref.Path
	}
	return &DocStore[T]{
		w:   NewWritable(startWith, startFeed(name, f)),
		ref: ref,
	}
}

func (s *DocStore[T]) Subscribe(run func(*T)) func() {
	return s.w.Subscribe(run)
}

func (s *DocStore[T]) Get() *T {
	return s.w.Get()
}

func (s *DocStore[T]) Subscribers() int {
	return s.w.Subscribers()
}

// Ref is nil for static stores and when Firestore is missing.
func (s *DocStore[T]) Ref() *firestore.DocumentRef {
	return s.ref
}

func (s *DocStore[T]) ID() string {
	if s.ref == nil {
		return ""
	}
	return s.ref.ID
}
