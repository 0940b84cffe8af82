package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// ErrNoCredentials means Firebase sign-in is not configured for this deployment
var ErrNoCredentials = errors.New("firebase credentials not configured")

// App holds the auth client the session provider verifies ID tokens with
type App struct {
	AuthClient *auth.Client
}

// InitFirebase builds the auth client from a service account file.
// A missing file is ErrNoCredentials so callers can run without Firebase.
func InitFirebase(ctx context.Context, credentialsPath string) (*App, error) {
	if credentialsPath == "" {
		return nil, ErrNoCredentials
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no file at %s", ErrNoCredentials, credentialsPath)
		}
		return nil, fmt.Errorf("stat firebase credentials: %w", err)
	}

	fbApp, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}
	return &App{AuthClient: authClient}, nil
}
