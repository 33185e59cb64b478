package live

import "sync"

// registry shares one store per path between concurrent streams, so N
// browsers watching the same document cost one Firestore listener.
type registry[S any] struct {
	mu     sync.Mutex
	stores map[string]S
	refs   map[string]int
	create func(path string) (S, error)
}

func newRegistry[S any](create func(path string) (S, error)) *registry[S] {
	return &registry[S]{
		stores: make(map[string]S),
		refs:   make(map[string]int),
		create: create,
	}
}

func (r *registry[S]) acquire(path string) (S, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[path]
	if !ok {
		var err error
		s, err = r.create(path)
		if err != nil {
			return s, err
		}
		r.stores[path] = s
	}
	r.refs[path]++
	return s, nil
}

func (r *registry[S]) release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refs[path]--
	if r.refs[path] <= 0 {
		delete(r.refs, path)
		delete(r.stores, path)
	}
}

func (r *registry[S]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
