package jobs

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

type sliceIterator struct {
	recs []*auth.ExportedUserRecord
	err  error
}

func (s *sliceIterator) Next() (*auth.ExportedUserRecord, error) {
	if len(s.recs) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, iterator.Done
	}
	r := s.recs[0]
	s.recs = s.recs[1:]
	return r, nil
}

type fakeLister struct{ it *sliceIterator }

func (f fakeLister) Users(context.Context) UserIterator { return f.it }

type fakeResyncer struct {
	uids []string
	fail map[string]bool
}

func (f *fakeResyncer) Resync(_ context.Context, rec *auth.UserRecord) error {
	if f.fail[rec.UID] {
		return errors.New("firestore unavailable")
	}
	f.uids = append(f.uids, rec.UID)
	return nil
}

func exported(uid string) *auth.ExportedUserRecord {
	return &auth.ExportedUserRecord{UserRecord: &auth.UserRecord{UserInfo: &auth.UserInfo{UID: uid}}}
}

func TestProfileResync_Run(t *testing.T) {
	it := &sliceIterator{recs: []*auth.ExportedUserRecord{exported("u1"), exported("u2"), exported("u3")}}
	mirror := &fakeResyncer{fail: map[string]bool{"u2": true}}

	synced, failed, err := NewProfileResync(fakeLister{it}, mirror, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"u1", "u3"}, mirror.uids)
}

func TestProfileResync_ListError(t *testing.T) {
	it := &sliceIterator{recs: []*auth.ExportedUserRecord{exported("u1")}, err: errors.New("quota")}
	mirror := &fakeResyncer{}

	synced, _, err := NewProfileResync(fakeLister{it}, mirror, nil).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, synced)
}

func TestScheduler_AddProfileResync(t *testing.T) {
	s := NewScheduler()
	job := NewProfileResync(fakeLister{&sliceIterator{}}, &fakeResyncer{}, nil)

	require.NoError(t, s.AddProfileResync("0 0 3 * * *", job))
	assert.Equal(t, 1, s.Entries())

	assert.Error(t, s.AddProfileResync("not a spec", job))

	s.Start()
	s.Stop()
}
