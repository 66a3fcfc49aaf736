// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

//go:build integration

// Package login_test runs the login pipeline against a real PostgreSQL.
package login_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/UniversoExpandido2018/UE-1/internal/store"
)

var (
	pgContainer *postgres.PostgresContainer
	pool        *pgxpool.Pool
)

func TestLoginIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Login Integration Suite")
}

var _ = BeforeSuite(func() {
	ctx := context.Background()
	var err error
	pgContainer, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ue1"),
		postgres.WithUsername("ue1"),
		postgres.WithPassword("ue1"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	m, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(m.Up()).To(Succeed())
	Expect(m.Close()).To(Succeed())

	pool, err = store.Open(ctx, connStr, store.PoolConfig{MaxConns: 4, ConnectAttempts: 3})
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if pgContainer != nil {
		Expect(pgContainer.Terminate(context.Background())).To(Succeed())
	}
})

// truncate resets every login table between specs.
func truncate(ctx context.Context) {
	_, err := pool.Exec(ctx, `TRUNCATE account_log, sessions, accounts RESTART IDENTITY CASCADE`)
	Expect(err).NotTo(HaveOccurred())
}
