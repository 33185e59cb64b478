package stores

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/firekit-dev/firekit/internal/logging"
)

// feed pushes values to emit until ctx is cancelled or the listener fails.
type feed[T any] func(ctx context.Context, emit func(T)) error

// startFeed adapts a feed to a StartFunc. A failing feed is logged and not
// restarted; the store keeps its last value. Values emitted after stop are
// dropped.
func startFeed[T any](name string, f feed[T]) StartFunc[T] {
	return func(set func(T)) func() {
		ctx, cancel := context.WithCancel(context.Background())
		emit := func(v T) {
			if ctx.Err() != nil {
				return
			}
			set(v)
		}
		go func() {
			if err := f(ctx, emit); err != nil && ctx.Err() == nil {
				logging.NewLogger(ctx).LogErrorf("stores.listen", "listener for %s stopped: %v", name, err)
			}
		}()
		return cancel
	}
}

func documentFeed[T any](ref *firestore.DocumentRef) feed[*T] {
	return func(ctx context.Context, emit func(*T)) error {
		it := ref.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if errors.Is(err, iterator.Done) || ctx.Err() != nil {
					return nil
				}
				return err
			}
			if !snap.Exists() {
				emit(nil)
				continue
			}
			var v T
			if err := snap.DataTo(&v); err != nil {
				return fmt.Errorf("decode %s: %w", ref.Path, err)
			}
			emit(&v)
		}
	}
}

func queryFeed[T any](q firestore.Query) feed[[]Item[T]] {
	return func(ctx context.Context, emit func([]Item[T])) error {
		it := q.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if errors.Is(err, iterator.Done) || ctx.Err() != nil {
					return nil
				}
				return err
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				return err
			}
			items := make([]Item[T], 0, len(docs))
			for _, d := range docs {
				var v T
				if err := d.DataTo(&v); err != nil {
					return fmt.Errorf("decode %s: %w", d.Ref.Path, err)
				}
				items = append(items, Item[T]{ID: d.Ref.ID, Ref: d.Ref, Data: v})
			}
			emit(items)
		}
	}
}
