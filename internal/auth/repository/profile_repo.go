package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/firekit-dev/firekit/internal/auth/domain"
)

// ProfileRepository writes mirrored profiles to users/{uid} in Firestore.
type ProfileRepository struct {
	client *firestore.Client
}

func NewProfileRepository(client *firestore.Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

func (r *ProfileRepository) doc(uid string) *firestore.DocumentRef {
	return r.client.Collection(domain.UsersCollection).Doc(uid)
}

// SaveProfile merges the profile into the user document.
func (r *ProfileRepository) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	if p.UID == "" {
		return fmt.Errorf("save profile: uid required")
	}
	if _, err := r.doc(p.UID).Set(ctx, p.Fields(), firestore.MergeAll); err != nil {
		return fmt.Errorf("save profile %s: %w", p.UID, err)
	}
	return nil
}
