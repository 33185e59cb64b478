package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritable_SubscribeReceivesCurrentValue(t *testing.T) {
	w := NewWritable(1, nil)

	var got []int
	unsub := w.Subscribe(func(v int) { got = append(got, v) })
	w.Set(2)
	w.Update(func(v int) int { return v * 10 })
	unsub()
	w.Set(3)

	assert.Equal(t, []int{1, 2, 20}, got)
	assert.Equal(t, 3, w.Get())
}

func TestWritable_SetNotifiesEveryTime(t *testing.T) {
	w := NewWritable("a", nil)
	calls := 0
	defer w.Subscribe(func(string) { calls++ })()

	w.Set("a")
	w.Set("a")
	assert.Equal(t, 3, calls)
}

func TestWritable_StartStop(t *testing.T) {
	starts, stops := 0, 0
	var setFn func(int)
	w := NewWritable(0, func(set func(int)) func() {
		starts++
		setFn = set
		return func() { stops++ }
	})

	var a, b []int
	unsubA := w.Subscribe(func(v int) { a = append(a, v) })
	unsubB := w.Subscribe(func(v int) { b = append(b, v) })
	assert.Equal(t, 1, starts)
	assert.Equal(t, 2, w.Subscribers())

	require.NotNil(t, setFn)
	setFn(5)
	assert.Equal(t, []int{0, 5}, a)
	assert.Equal(t, []int{0, 5}, b)

	unsubA()
	unsubA()
	assert.Equal(t, 0, stops)
	unsubB()
	assert.Equal(t, 1, stops)
	assert.Equal(t, 0, w.Subscribers())

	defer w.Subscribe(func(int) {})()
	assert.Equal(t, 2, starts)
}

func TestWritable_StartSetsSynchronously(t *testing.T) {
	w := NewWritable(0, func(set func(int)) func() {
		set(7)
		return func() {}
	})

	var got []int
	defer w.Subscribe(func(v int) { got = append(got, v) })()
	assert.Equal(t, []int{7, 7}, got)
}
