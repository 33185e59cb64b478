package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccess_Check(t *testing.T) {
	a := NewAccess([]string{"users/{uid}", "public"})

	tests := []struct {
		name    string
		uid     string
		path    string
		want    string
		wantErr error
	}{
		{name: "own doc", uid: "u1", path: "/users/u1", want: "users/u1"},
		{name: "own subcollection", uid: "u1", path: "users/u1/notes", want: "users/u1/notes"},
		{name: "other user", uid: "u1", path: "users/u2", wantErr: ErrForbidden},
		{name: "prefix is not a segment match", uid: "u1", path: "users/u1x", wantErr: ErrForbidden},
		{name: "public", uid: "u1", path: "public/news", want: "public/news"},
		{name: "anonymous", uid: "", path: "public/news", wantErr: ErrForbidden},
		{name: "empty", uid: "u1", path: "/", wantErr: ErrInvalidPath},
		{name: "dot segments", uid: "u1", path: "users/u1/../u2", wantErr: ErrInvalidPath},
		{name: "double slash", uid: "u1", path: "users//u1", wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Check(tt.uid, tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_SharesAndReleases(t *testing.T) {
	created := 0
	r := newRegistry(func(path string) (string, error) {
		created++
		return "store:" + path, nil
	})

	a, _ := r.acquire("users/u1")
	b, _ := r.acquire("users/u1")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, created)

	r.release("users/u1")
	assert.Equal(t, 1, r.len())
	r.release("users/u1")
	assert.Equal(t, 0, r.len())

	_, _ = r.acquire("users/u1")
	assert.Equal(t, 2, created)
}
