package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"taskdeck/internal/auth"
	"taskdeck/internal/backend"
	"taskdeck/internal/config"
	"taskdeck/internal/logging"
	"taskdeck/internal/remote"
	"taskdeck/internal/session"
	"taskdeck/internal/storage"
)

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// server is the store side: database, auth and the task service.
type server struct {
	store *storage.Store
	auth  *auth.Service
	tasks *backend.Service
}

func (s server) Close() error {
	return s.store.Close()
}

// openServer opens the database. Without a configured secret it fails,
// unless ephemeral is set, in which case tokens are signed with a
// throwaway key that dies with the process.
func openServer(cfg config.Server, logger *slog.Logger, ephemeral bool) (server, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if !ephemeral {
			return server{}, errors.New("server.jwt_secret is empty; set it in the config or via " + config.EnvJWTSecret)
		}
		secret = uuid.NewString()
		logger.Warn("no jwt secret configured, using a per-process key")
	}
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return server{}, fmt.Errorf("open database: %w", err)
	}
	tokens := auth.NewTokens(auth.TokenConfig{
		Secret:     secret,
		Issuer:     cfg.Issuer,
		AccessTTL:  cfg.AccessTTL.Duration,
		RefreshTTL: cfg.RefreshTTL.Duration,
	})
	return server{
		store: store,
		auth:  auth.NewService(store, tokens, auth.NewHasher(cfg.BcryptCost), logger),
		tasks: backend.NewService(store, logger),
	}, nil
}

// client is what the TUI and the one-shot commands talk to.
type client struct {
	store   remote.Store
	authn   remote.Authenticator
	session *session.Manager
	close   func() error
	http    *remote.Client
	local   *server
}

func openClient(cfg config.Config, logger *slog.Logger, local bool) (*client, error) {
	c := &client{close: func() error { return nil }}
	if local {
		srv, err := openServer(cfg.Server, logger, true)
		if err != nil {
			return nil, err
		}
		l := remote.NewLocal(srv.auth, srv.tasks)
		c.store, c.authn, c.local, c.close = l, l, &srv, srv.Close
	} else {
		hc := remote.NewClient(cfg.Client.APIURL, &http.Client{Timeout: cfg.Client.RequestTimeout.Duration})
		c.store, c.authn, c.http = hc, hc, hc
	}
	sessionPath := cfg.Client.SessionPath
	if local {
		sessionPath = localVariant(sessionPath)
	}
	c.session = session.NewManager(c.authn,
		session.WithFile(session.NewFile(sessionPath)),
		session.WithLogger(logger),
	)
	return c, nil
}

// localVariant keeps in-process sessions apart from ones issued by a
// server: session.toml becomes session-local.toml.
func localVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-local" + ext
}

// clientLogger logs to the configured file so the terminal stays clean.
func clientLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	return logging.Open(cfg.Log, os.Stderr)
}
