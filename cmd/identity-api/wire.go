package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/auth"
	config "github.com/NordCoder/Warden/internal/config/identity-api"
	"github.com/NordCoder/Warden/internal/domain/role"
	"github.com/NordCoder/Warden/internal/repository/google"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	"github.com/NordCoder/Warden/internal/services/identity-api/api"
	"github.com/NordCoder/Warden/internal/services/identity-api/credentials"
	"github.com/NordCoder/Warden/internal/services/identity-api/session"
)

type application struct {
	db     *pg.DB
	server *api.Server
}

func (a *application) Close() { a.db.Close() }

func wire(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	now := func() time.Time { return time.Now().UTC() }
	roles := role.NewHierarchy()

	issuer, err := auth.NewIssuer(auth.Settings{
		Secret:     []byte(cfg.Auth.SigningSecret),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AccessTTL:  cfg.Auth.AccessTTL(),
		RefreshTTL: cfg.Auth.RefreshTTL(),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	tx := pg.NewTransactor(db, logger)
	users := pg.NewUserRepo(db)
	store := credentials.NewStore(users, auth.DefaultPasswordHasher(), roles, logger)

	strategy, err := session.NewStrategy(cfg.Auth.RefreshStrategy,
		pg.NewRefreshLedger(db, tx), pg.NewRevocationRepo(db), issuer,
		cfg.Auth.RefreshTTL(), now)
	if err != nil {
		db.Close()
		return nil, err
	}

	deps := session.Deps{
		Credentials: store,
		Access:      issuer,
		Refresh:     strategy,
		Events:      pg.NewOutboxRepo(db),
		Tx:          tx,
		Roles:       roles,
		Logger:      logger,
		Now:         now,
	}
	if cfg.Google.ClientID != "" {
		v, err := google.NewJWKSValidator(ctx, cfg.Google.ClientID, cfg.Google.CertsURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("google jwks: %w", err)
		}
		deps.External = v
	} else {
		logger.Warn("google.client_id is empty; google sign-in disabled")
	}

	svc, err := session.NewService(deps)
	if err != nil {
		db.Close()
		return nil, err
	}

	srv := api.NewServer(svc, issuer, api.Opts{
		Logger: logger,
		Cookie: api.CookieOpts{
			Name:   cfg.Auth.CookieName,
			Domain: cfg.Auth.CookieDomain,
			Path:   cfg.Auth.CookiePath,
			Secure: cfg.Auth.CookieSecure,
		},
		RefreshTTL: cfg.Auth.RefreshTTL(),
		Roles:      roles,
	})
	return &application{db: db, server: srv}, nil
}
