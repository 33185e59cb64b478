package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firekit-dev/firekit/internal/auth/domain"
)

// UserRepository keeps a relational copy of mirrored profiles in Postgres.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// SaveProfile creates or updates the row for the profile's uid. Null columns
// keep their previous value, matching the merge semantics of the Firestore copy.
func (r *UserRepository) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	if p.UID == "" {
		return fmt.Errorf("firebase_uid required")
	}

	providerData := []byte("[]")
	if len(p.ProviderData) > 0 {
		if b, err := json.Marshal(p.ProviderData); err == nil {
			providerData = b
		}
	}

	const q = `
insert into users (firebase_uid, email, email_verified, display_name, photo_url,
                   is_anonymous, provider_id, phone_number, provider_data, updated_at)
values ($1, nullif($2,''), $3, nullif($4,''), nullif($5,''), $6, $7, nullif($8,''), $9, now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, users.email),
  email_verified = excluded.email_verified,
  display_name = coalesce(excluded.display_name, users.display_name),
  photo_url = coalesce(excluded.photo_url, users.photo_url),
  is_anonymous = excluded.is_anonymous,
  provider_id = excluded.provider_id,
  phone_number = coalesce(excluded.phone_number, users.phone_number),
  provider_data = excluded.provider_data,
  updated_at = now();
`
	_, err := r.db.Exec(ctx, q,
		p.UID,
		p.Email,
		p.EmailVerified,
		p.DisplayName,
		p.PhotoURL,
		p.IsAnonymous,
		p.ProviderID,
		p.PhoneNumber,
		providerData,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// EnsureSchema creates the users table when it does not exist yet.
func (r *UserRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
create table if not exists users (
  firebase_uid   text primary key,
  email          text,
  email_verified boolean not null default false,
  display_name   text,
  photo_url      text,
  is_anonymous   boolean not null default false,
  provider_id    text not null default 'firebase',
  phone_number   text,
  provider_data  jsonb not null default '[]'::jsonb,
  created_at     timestamptz not null default now(),
  updated_at     timestamptz not null default now()
);
`
	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}
