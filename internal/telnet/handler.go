// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package telnet

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/UniversoExpandido2018/UE-1/internal/login"
	"github.com/UniversoExpandido2018/UE-1/internal/message"
)

const (
	writeTimeout = 10 * time.Second

	// maxLineLength bounds one command line, terminator included.
	maxLineLength = 4096

	kindHello   = message.Kind("hello")
	kindGoodbye = message.Kind("goodbye")

	usage = "login <username> <password> [version]"
)

// frame is one encoded line on the wire.
type frame struct {
	Kind message.Kind `json:"kind"`
	Data any          `json:"data,omitempty"`
}

type hello struct {
	Usage string `json:"usage"`
}

// ConnectionHandler handles a single telnet connection. It is the
// session.Client handed to the login orchestrator.
type ConnectionHandler struct {
	conn    net.Conn
	scanner *bufio.Scanner
	starter LoginStarter
	logger  *slog.Logger
	connID  ulid.ULID

	writeMu   sync.Mutex
	accountID atomic.Uint32

	// Only touched by the Handle goroutine.
	attempt  *login.Attempt
	quitting bool
}

// NewConnectionHandler creates a new handler.
func NewConnectionHandler(conn net.Conn, starter LoginStarter, logger *slog.Logger) *ConnectionHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	connID := ulid.Make()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 512), maxLineLength)
	return &ConnectionHandler{
		conn:    conn,
		scanner: scanner,
		starter: starter,
		logger:  logger.With("conn_id", connID.String()),
		connID:  connID,
	}
}

// IPAddress returns the remote host without port.
func (h *ConnectionHandler) IPAddress() string {
	addr := h.conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// SetAccountID records the logged-in account.
func (h *ConnectionHandler) SetAccountID(id uint32) {
	h.accountID.Store(id)
}

// AccountID returns the logged-in account, or zero.
func (h *ConnectionHandler) AccountID() uint32 {
	return h.accountID.Load()
}

// Send writes msg as one JSON line.
func (h *ConnectionHandler) Send(msg message.Message) error {
	return h.write(msg.Kind(), msg)
}

func (h *ConnectionHandler) write(kind message.Kind, data any) error {
	line, err := json.Marshal(frame{Kind: kind, Data: data})
	if err != nil {
		return oops.Code("TELNET_ENCODE_FAILED").With("kind", string(kind)).Wrap(err)
	}
	line = append(line, '\n')

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return oops.Code("TELNET_WRITE_FAILED").Wrap(err)
	}
	if _, err := h.conn.Write(line); err != nil {
		return oops.Code("TELNET_WRITE_FAILED").With("kind", string(kind)).Wrap(err)
	}
	return nil
}

// Handle processes the connection until it is closed or ctx is cancelled.
// The context handed to the orchestrator is cancelled when Handle returns.
func (h *ConnectionHandler) Handle(ctx context.Context) {
	connCtx, disconnect := context.WithCancel(ctx)
	defer func() {
		disconnect()
		if err := h.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", "error", err)
		}
	}()

	h.send(kindHello, hello{Usage: usage})

	lineCh := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		for h.scanner.Scan() {
			select {
			case lineCh <- strings.TrimSpace(h.scanner.Text()):
			case <-connCtx.Done():
				return
			}
		}
		err := h.scanner.Err()
		if err == nil {
			err = io.EOF
		}
		errCh <- err
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-errCh:
			if errors.Is(err, bufio.ErrTooLong) {
				h.logger.Warn("closing connection with oversized line", "limit", maxLineLength)
				h.sendError("Login Error", "Line too long.")
				return
			}
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("connection read error", "error", err)
			}
			return

		case line := <-lineCh:
			h.processLine(connCtx, line)
			if h.quitting {
				return
			}
		}
	}
}

func (h *ConnectionHandler) processLine(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch strings.ToLower(fields[0]) {
	case "login":
		h.handleLogin(ctx, fields[1:])
	case "quit":
		h.send(kindGoodbye, nil)
		h.quitting = true
	default:
		h.sendError("Unknown Command", "Unknown command: "+fields[0])
	}
}

func (h *ConnectionHandler) handleLogin(ctx context.Context, args []string) {
	if h.AccountID() != 0 {
		h.sendError("Login Error", "Already logged in.")
		return
	}
	if h.attempt != nil && !h.attempt.State().Terminal() {
		h.sendError("Login Error", "A login is already in progress.")
		return
	}
	if len(args) < 2 || len(args) > 3 {
		h.sendError("Login Error", "Usage: "+usage)
		return
	}

	req := login.Request{Username: args[0], Password: args[1]}
	if len(args) == 3 {
		req.Version = args[2]
	}
	h.attempt = h.starter.Login(ctx, h, req)
	h.logger.Debug("login attempt started",
		"attempt_id", h.attempt.ID.String(),
		"username", req.Username,
	)
}

func (h *ConnectionHandler) sendError(title, body string) {
	h.send(message.KindError, message.Error{Title: title, Body: body})
}

func (h *ConnectionHandler) send(kind message.Kind, data any) {
	if err := h.write(kind, data); err != nil {
		h.logger.Debug("failed to send message to client", "error", err)
	}
}
