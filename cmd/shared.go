package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dashkit/authcore/auth"
	"github.com/dashkit/authcore/client"
	"github.com/dashkit/authcore/config"
	"github.com/dashkit/authcore/db"
	"github.com/dashkit/authcore/session"
)

// app wires the config, token store, API client, refresh coordinator, and
// session manager together for the CLI commands. Everything is constructed
// explicitly; there is no package-level state to leak between commands.
type app struct {
	cfg      *config.Config
	database *gorm.DB
	api      *client.Client
	tokens   *auth.Coordinator
	session  *session.Manager
}

// newApp builds the dependency graph. Config comes from the file named by
// AUTHCORE_CONFIG, or from environment variables when unset.
func newApp() (*app, error) {
	cfg, err := config.Load(os.Getenv("AUTHCORE_CONFIG"))
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	repo := db.NewTokenRepository(database)
	api := client.New(cfg)
	tokens := auth.NewCoordinator(repo, api, cfg.ExpiryBuffer)
	sess := session.NewManager(api, repo, cfg.ExpiryBuffer)
	api.WithAuth(tokens, sess.HandleAuthFailure)

	return &app{
		cfg:      cfg,
		database: database,
		api:      api,
		tokens:   tokens,
		session:  sess,
	}, nil
}

func (a *app) close() {
	if err := db.Close(a.database); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
	}
}
