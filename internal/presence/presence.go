package presence

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/db"
)

const (
	StateOnline  = "online"
	StateOffline = "offline"

	statusRoot = "status"
)

// Status is the value kept at status/{uid} in the Realtime Database.
type Status struct {
	State       string `json:"state"`
	LastChanged int64  `json:"lastChanged"` // milliseconds since epoch
}

// Tracker writes sign-in state to the Realtime Database. A Tracker without a
// database client does nothing.
type Tracker struct {
	client *db.Client
	now    func() time.Time
}

func NewTracker(client *db.Client) *Tracker {
	return &Tracker{client: client, now: time.Now}
}

func (t *Tracker) Enabled() bool {
	return t != nil && t.client != nil
}

func (t *Tracker) SetOnline(ctx context.Context, uid string) error {
	return t.set(ctx, uid, StateOnline)
}

func (t *Tracker) SetOffline(ctx context.Context, uid string) error {
	return t.set(ctx, uid, StateOffline)
}

// Get returns nil when no status was ever written for uid.
func (t *Tracker) Get(ctx context.Context, uid string) (*Status, error) {
	if !t.Enabled() {
		return nil, nil
	}
	var s *Status
	if err := t.client.NewRef(statusRoot).Child(uid).Get(ctx, &s); err != nil {
		return nil, fmt.Errorf("get presence %s: %w", uid, err)
	}
	return s, nil
}

func (t *Tracker) set(ctx context.Context, uid, state string) error {
	if !t.Enabled() || uid == "" {
		return nil
	}
	s := Status{State: state, LastChanged: t.now().UnixMilli()}
	if err := t.client.NewRef(statusRoot).Child(uid).Set(ctx, s); err != nil {
		return fmt.Errorf("set presence %s: %w", uid, err)
	}
	return nil
}
