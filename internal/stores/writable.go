package stores

import "sync"

// StartFunc runs when a store gets its first subscriber. The returned stop
// runs when the last subscriber leaves.
type StartFunc[T any] func(set func(T)) (stop func())

type subscriber[T any] struct {
	id  uint64
	run func(T)
}

// Writable is an observable value. New subscribers are called with the current
// value right away and again on every Set. Callbacks run synchronously and must
// not subscribe to or set the store they are called from.
type Writable[T any] struct {
	mu     sync.Mutex
	value  T
	subs   []subscriber[T]
	nextID uint64

	start      StartFunc[T]
	stop       func()
	generation uint64

	notifyMu sync.Mutex
}

func NewWritable[T any](initial T, start StartFunc[T]) *Writable[T] {
	return &Writable[T]{value: initial, start: start}
}

func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

func (w *Writable[T]) Set(v T) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	w.set(v)
}

func (w *Writable[T]) Update(fn func(T) T) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	w.set(fn(w.Get()))
}

func (w *Writable[T]) set(v T) {
	w.mu.Lock()
	w.value = v
	subs := make([]subscriber[T], len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()

	for _, s := range subs {
		s.run(v)
	}
}

// Subscribe registers run and returns a function that removes it. The
// returned function is safe to call more than once.
func (w *Writable[T]) Subscribe(run func(T)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs = append(w.subs, subscriber[T]{id: id, run: run})
	first := len(w.subs) == 1 && w.start != nil
	if first {
		w.generation++
	}
	gen := w.generation
	w.mu.Unlock()

	if first {
		stop := w.start(w.Set)
		w.mu.Lock()
		if w.generation == gen && len(w.subs) > 0 {
			w.stop = stop
			stop = nil
		}
		w.mu.Unlock()
		// everyone left while start was running
		if stop != nil {
			stop()
		}
	}

	w.notifyMu.Lock()
	run(w.Get())
	w.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { w.unsubscribe(id) })
	}
}

func (w *Writable[T]) unsubscribe(id uint64) {
	w.mu.Lock()
	for i, s := range w.subs {
		if s.id == id {
			w.subs = append(w.subs[:i], w.subs[i+1:]...)
			break
		}
	}
	var stop func()
	if len(w.subs) == 0 {
		stop = w.stop
		w.stop = nil
		w.generation++
	}
	w.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Subscribers reports how many subscribers are registered.
func (w *Writable[T]) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}
