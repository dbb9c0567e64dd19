package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"trainload/internal/auth"
	"trainload/internal/config"
	"trainload/internal/store"
	"trainload/internal/strava"
)

// connectStrava returns an API client with auto-refreshing tokens, running
// the browser OAuth flow when no usable token is stored
func connectStrava(ctx context.Context, cfg *config.Config, db *store.DB) (*strava.Client, error) {
	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", auth.CallbackPort),
	})

	storedAuth, err := db.GetAuth()
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No authentication found. Starting OAuth flow...")
		if storedAuth, err = authenticate(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	tokenSource := auth.NewTokenSource(oauthCfg, auth.TokenFromStore(storedAuth), auth.PersistTo(db))

	// Test token is valid by getting a fresh one
	if _, err := tokenSource.Token(); err != nil {
		fmt.Println("Stored token is invalid or expired. Re-authenticating...")
		if storedAuth, err = authenticate(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("re-authentication: %w", err)
		}
		tokenSource = auth.NewTokenSource(oauthCfg, auth.TokenFromStore(storedAuth), auth.PersistTo(db))
	}

	return strava.NewClient(tokenSource), nil
}

func authenticate(ctx context.Context, db *store.DB, cfg *config.Config) (*store.Auth, error) {
	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", auth.CallbackPort),
	})

	result, err := auth.Authenticate(ctx, oauthCfg, os.Stdout)
	if err != nil {
		return nil, err
	}

	storedAuth := result.StoreAuth()
	if err := db.SaveAuth(storedAuth); err != nil {
		return nil, fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	fmt.Printf("Successfully authenticated as athlete %d!\n", result.AthleteID)
	return storedAuth, nil
}
