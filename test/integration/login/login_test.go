// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

//go:build integration

package login_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/UniversoExpandido2018/UE-1/internal/account"
	accountpg "github.com/UniversoExpandido2018/UE-1/internal/account/postgres"
	"github.com/UniversoExpandido2018/UE-1/internal/auth"
	"github.com/UniversoExpandido2018/UE-1/internal/login"
	"github.com/UniversoExpandido2018/UE-1/internal/message"
	"github.com/UniversoExpandido2018/UE-1/internal/session"
	sessionpg "github.com/UniversoExpandido2018/UE-1/internal/session/postgres"
)

const clientVersion = "20100225-17:43"

type client struct {
	mu        sync.Mutex
	accountID uint32
	sent      []message.Message
}

func (c *client) IPAddress() string { return "203.0.113.7" }

func (c *client) SetAccountID(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountID = id
}

func (c *client) Send(msg message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *client) first() message.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[0]
}

var _ = Describe("Login against PostgreSQL", func() {
	var (
		ctx      context.Context
		hasher   *auth.SHAHasher
		accounts *accountpg.AccountRepository
		sessions *sessionpg.SessionRepository
		orch     *login.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)

		hasher = auth.NewSHAHasher("db-secret")
		accounts = accountpg.NewAccountRepository(pool)
		sessions = sessionpg.NewSessionRepository(pool)

		accountStore, err := account.NewStore(accounts)
		Expect(err).NotTo(HaveOccurred())
		validator, err := auth.NewValidator(accountStore, hasher, auth.Policy{AutoRegistration: true})
		Expect(err).NotTo(HaveOccurred())
		issuer, err := session.NewIssuer(sessions, sessionpg.NewAuditRepository(pool), session.AllowAll{},
			&message.StaticDirectory{}, message.NoCharacters{})
		Expect(err).NotTo(HaveOccurred())
		orch, err = login.NewOrchestrator(validator, session.AllowAll{}, issuer,
			login.WithRequiredVersion(clientVersion))
		Expect(err).NotTo(HaveOccurred())
	})

	run := func(username, password string) (*client, *login.Attempt) {
		c := &client{}
		a := orch.Login(ctx, c, login.Request{Username: username, Password: password, Version: clientVersion})
		Eventually(a.Done()).Should(BeClosed())
		return c, a
	}

	It("registers a new account and persists its session", func() {
		c, a := run("wedge", "antilles")
		Expect(a.State()).To(Equal(login.StateSessionIssued))

		tok, ok := c.first().(message.ClientToken)
		Expect(ok).To(BeTrue())
		Expect(tok.Username).To(Equal("wedge"))

		rec, err := accounts.GetByUsername(ctx, "wedge")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.ID).To(Equal(tok.AccountID))
		Expect(rec.Salt).NotTo(BeEmpty())

		stored, err := sessions.GetByAccount(ctx, tok.AccountID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Token).To(Equal(tok.Token))

		var logged int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM account_log WHERE account_id = $1`, tok.AccountID).Scan(&logged)).To(Succeed())
		Expect(logged).To(Equal(1))
	})

	It("rejects a wrong password without touching sessions", func() {
		_, a := run("wedge", "antilles")
		Expect(a.State()).To(Equal(login.StateSessionIssued))

		c, a := run("wedge", "tycho")
		Expect(a.State()).To(Equal(login.StateRejected))
		Expect(c.first()).To(BeAssignableToTypeOf(message.Error{}))

		var count int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM sessions`).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})

	It("upgrades a legacy account to the salted scheme", func() {
		_, err := pool.Exec(ctx,
			`INSERT INTO accounts (username, password_hash, salt, station_id, active) VALUES ($1, $2, '', 0, true)`,
			"biggs", hasher.LegacyHash("darklighter"))
		Expect(err).NotTo(HaveOccurred())

		_, a := run("biggs", "darklighter")
		Expect(a.State()).To(Equal(login.StateSessionIssued))

		rec, err := accounts.GetByUsername(ctx, "biggs")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Salt).NotTo(BeEmpty())
		Expect(rec.PasswordHash).To(Equal(hasher.SaltedHash("darklighter", rec.Salt)))
	})

	It("keeps one session row per account across logins", func() {
		first, _ := run("wedge", "antilles")
		second, a := run("wedge", "antilles")
		Expect(a.State()).To(Equal(login.StateSessionIssued))

		tok1 := first.first().(message.ClientToken)
		tok2 := second.first().(message.ClientToken)
		Expect(tok2.Token).NotTo(Equal(tok1.Token))

		stored, err := sessions.GetByAccount(ctx, tok2.AccountID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Token).To(Equal(tok2.Token))
	})
})
