// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/UniversoExpandido2018/UE-1/internal/account"
	accountpg "github.com/UniversoExpandido2018/UE-1/internal/account/postgres"
	"github.com/UniversoExpandido2018/UE-1/internal/auth"
	"github.com/UniversoExpandido2018/UE-1/internal/config"
	"github.com/UniversoExpandido2018/UE-1/internal/login"
	"github.com/UniversoExpandido2018/UE-1/internal/message"
	"github.com/UniversoExpandido2018/UE-1/internal/observability"
	"github.com/UniversoExpandido2018/UE-1/internal/session"
	sessionpg "github.com/UniversoExpandido2018/UE-1/internal/session/postgres"
	"github.com/UniversoExpandido2018/UE-1/internal/store"
)

// Backends are the persistent stores behind the login core.
type Backends struct {
	Accounts account.Repository
	Sessions session.Repository
	Audit    session.AuditLog
}

// startupConnectAttempts bounds database ping retries at startup.
const startupConnectAttempts = 5

// openPostgres connects the backends to PostgreSQL.
func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, func(), error) {
	pool, err := store.Open(ctx, cfg.Database.URL, store.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		ConnectAttempts: startupConnectAttempts,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return &Backends{
		Accounts: accountpg.NewAccountRepository(pool),
		Sessions: sessionpg.NewSessionRepository(pool),
		Audit:    sessionpg.NewAuditRepository(pool),
	}, pool.Close, nil
}

// loginCore is the assembled login pipeline.
type loginCore struct {
	orchestrator *login.Orchestrator
	// remote is nil when sessions are approved locally.
	remote *session.RemoteAuthority
}

// wait blocks until in-flight session API calls have delivered their verdicts.
func (c *loginCore) wait() {
	if c.remote != nil {
		c.remote.Wait()
	}
}

func buildLoginCore(cfg *config.Config, b *Backends, logger *slog.Logger, metrics *observability.Metrics) (*loginCore, error) {
	accounts, err := account.NewStore(b.Accounts,
		account.WithNamespace(account.Namespace(cfg.Accounts.Namespace)),
		account.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	validator, err := auth.NewValidator(accounts, auth.NewSHAHasher(cfg.Login.DBSecret), auth.Policy{
		AutoRegistration:    cfg.Login.AutoRegistration,
		RegistrationMessage: cfg.Login.RegistrationMessage,
		InactiveTitle:       cfg.Login.InactiveTitle,
		InactiveText:        cfg.Login.InactiveText,
	}, auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	core := &loginCore{}
	var authority session.Authority = session.AllowAll{}
	if cfg.SessionAPI.URL != "" {
		core.remote, err = session.NewRemoteAuthority(session.RemoteConfig{
			BaseURL:    cfg.SessionAPI.URL,
			Timeout:    cfg.SessionAPI.Timeout,
			MaxRetries: cfg.SessionAPI.MaxRetries,
			FailOpen:   cfg.SessionAPI.FailOpen,
		}, session.WithRemoteLogger(logger))
		if err != nil {
			return nil, err
		}
		authority = core.remote
	}

	issuer, err := session.NewIssuer(b.Sessions, b.Audit, authority,
		directoryFromConfig(cfg.Directory), message.NoCharacters{},
		session.WithIssuerLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	core.orchestrator, err = login.NewOrchestrator(validator, authority, issuer,
		login.WithLogger(logger),
		login.WithRequiredVersion(cfg.Login.RequiredVersion),
		login.WithLimiter(auth.NewAttemptLimiter(cfg.Login.AttemptsPerMinute)),
		login.WithRecorder(metrics),
	)
	if err != nil {
		return nil, err
	}
	return core, nil
}

// directoryFromConfig builds the static cluster directory. A cluster with
// an address is reported online.
func directoryFromConfig(cfg config.DirectoryConfig) *message.StaticDirectory {
	dir := &message.StaticDirectory{MaxCharsPerUser: cfg.MaxCharsPerUser}
	for _, c := range cfg.Clusters {
		dir.Clusters = append(dir.Clusters, message.Cluster{ID: c.ID, Name: c.Name, Timezone: c.Timezone})
		dir.States = append(dir.States, message.ClusterState{
			ID:      c.ID,
			Address: c.Address,
			Port:    c.Port,
			Online:  c.Address != "",
		})
	}
	return dir
}
