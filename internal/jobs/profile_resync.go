package jobs

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"

	"github.com/firekit-dev/firekit/internal/logging"
	"github.com/firekit-dev/firekit/internal/metrics"
)

type UserIterator interface {
	Next() (*auth.ExportedUserRecord, error)
}

type UserLister interface {
	Users(ctx context.Context) UserIterator
}

// AdminUsers lists every user of the project through the Admin SDK.
type AdminUsers struct {
	Client *auth.Client
}

func (a AdminUsers) Users(ctx context.Context) UserIterator {
	return a.Client.Users(ctx, "")
}

type Resyncer interface {
	Resync(ctx context.Context, rec *auth.UserRecord) error
}

// ProfileResync re-mirrors every user's profile, catching changes made
// outside this service (console edits, other clients).
type ProfileResync struct {
	users   UserLister
	mirror  Resyncer
	metrics metrics.Recorder
}

func NewProfileResync(users UserLister, mirror Resyncer, recorder metrics.Recorder) *ProfileResync {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &ProfileResync{users: users, mirror: mirror, metrics: recorder}
}

// Run stops on listing errors; a failed mirror is counted and skipped.
func (j *ProfileResync) Run(ctx context.Context) (synced, failed int, err error) {
	logger := logging.NewLogger(ctx)
	defer func() { j.metrics.RecordProfileResync(synced, failed) }()

	it := j.users.Users(ctx)
	for {
		rec, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return synced, failed, fmt.Errorf("list users: %w", err)
		}
		if rec == nil || rec.UserRecord == nil {
			continue
		}

		if err := j.mirror.Resync(ctx, rec.UserRecord); err != nil {
			failed++
			logger.LogWarnf("jobs.profile_resync", "uid=%s error=%v", rec.UID, err)
			continue
		}
		synced++
	}

	logger.LogInfof("jobs.profile_resync", "synced=%d failed=%d", synced, failed)
	return synced, failed, nil
}
