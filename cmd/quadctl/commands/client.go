// Package commands holds the quadctl subcommands.
package commands

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/quadtask/quadtask/internal/config"
	"github.com/quadtask/quadtask/internal/store"
)

// sourceCLI tags override writes made through quadctl in the audit trail.
const sourceCLI = "cli"

// newStoreClient builds a task store client from the environment config.
func newStoreClient() (*store.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.TickTickClientID,
		ClientSecret: cfg.TickTickSecret,
		Endpoint:     store.OAuthEndpoint(),
	}
	token := &oauth2.Token{
		AccessToken:  cfg.TickTickAccessToken,
		RefreshToken: cfg.TickTickRefresh,
	}
	return store.NewClient(cfg.TaskStoreURL, oauthCfg, token), nil
}

// parseUser parses the required --user flag value.
func parseUser(raw string) (uuid.UUID, error) {
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q: %w", raw, err)
	}
	return userID, nil
}
