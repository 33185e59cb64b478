package platform

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/db"
	"firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"

	"github.com/firekit-dev/firekit/config"
	"github.com/firekit-dev/firekit/internal/functions"
)

// Platform holds the vendor clients of one Firebase app. Database and Storage
// are nil when their config is absent.
type Platform struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
	Database  *db.Client
	Storage   *storage.Client
	Functions *functions.Client
}

// Initialize initializes the Firebase Admin SDK and every client the service uses
func Initialize(ctx context.Context, cfg *config.FirebaseConfig) (*Platform, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		DatabaseURL:   cfg.DatabaseURL,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	p := &Platform{
		App:       app,
		Functions: newFunctionsClient(cfg),
	}

	p.Auth, err = app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	p.Firestore, err = app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}

	if cfg.DatabaseURL != "" {
		p.Database, err = app.Database(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to get Database client: %w", err)
		}
	} else {
		log.Println("[warn] FIREBASE_DATABASE_URL not set, realtime database disabled")
	}

	if cfg.StorageBucket != "" {
		p.Storage, err = app.Storage(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to get Storage client: %w", err)
		}
	} else {
		log.Println("[warn] FIREBASE_STORAGE_BUCKET not set, storage disabled")
	}

	return p, nil
}

// newFunctionsClient targets the emulator when FunctionsEmulatorHost is set,
// which serves callables under /{project}/{region}/{name}.
func newFunctionsClient(cfg *config.FirebaseConfig) *functions.Client {
	if cfg.FunctionsEmulatorHost != "" {
		log.Printf("[info] callable functions use the emulator at %s", cfg.FunctionsEmulatorHost)
		return functions.NewClientWithBaseURL(
			fmt.Sprintf("http://%s/%s/%s", cfg.FunctionsEmulatorHost, cfg.ProjectID, cfg.FunctionsRegion), nil)
	}
	return functions.NewClient(cfg.FunctionsRegion, cfg.ProjectID, nil)
}

func (p *Platform) Close() {
	if p == nil || p.Firestore == nil {
		return
	}
	_ = p.Firestore.Close()
}
