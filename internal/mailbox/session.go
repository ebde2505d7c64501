package mailbox

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mailtools/mailbridge/internal/config"
	"github.com/mailtools/mailbridge/internal/logging"
	"github.com/mailtools/mailbridge/internal/mailerr"
	"github.com/mailtools/mailbridge/internal/store"
	"github.com/mailtools/mailbridge/internal/xoauth2"
)

// Session is one authenticated IMAP connection. The connection has a
// single selected mailbox at a time, so all mailbox access is
// serialized session-wide; no two operations interleave server-side
// selection state.
type Session struct {
	client   *client.Client
	logger   *slog.Logger
	teardown time.Duration

	// mu guards Select and everything run against the selected mailbox.
	mu sync.Mutex
}

// Open dials the account's IMAP endpoint over TLS and authenticates
// with either the password or an OAuth bearer token. The credential
// argument is the password in password mode and the access token in
// oauth mode.
//
// Certificate verification follows the TLS config; relaxed
// verification is the default to match common provider setups and can
// be tightened with strict_verify.
func Open(rec store.Record, credential string, cfg config.Config, logger *slog.Logger) (*Session, error) {
	const op = "mailbox.open"
	if logger == nil {
		logger = slog.Default()
	}

	tlsConfig := &tls.Config{
		ServerName:         rec.Server.IMAPHost,
		InsecureSkipVerify: !cfg.TLS.StrictVerify,
	}
	c, err := client.DialTLS(rec.Server.IMAPAddr(), tlsConfig)
	if err != nil {
		return nil, mailerr.E(mailerr.KindConnectionFailed, op,
			fmt.Errorf("dial %s: %w", rec.Server.IMAPAddr(), err))
	}
	c.Timeout = cfg.Timeout.Operation

	if rec.AuthMode == store.AuthOAuthBearer {
		if err := c.Authenticate(xoauth2.NewClient(rec.Address, credential)); err != nil {
			c.Terminate()
			return nil, mailerr.E(mailerr.KindAuthExpired, op,
				fmt.Errorf("xoauth2 authenticate: %w", err))
		}
	} else {
		if err := c.Login(rec.Address, credential); err != nil {
			c.Terminate()
			return nil, mailerr.E(classifyLoginError(err), op,
				fmt.Errorf("login: %w", err))
		}
	}

	logger.Debug("imap session opened",
		logging.Operation(op),
		logging.Account(rec.Address))

	return &Session{
		client:   c,
		logger:   logger,
		teardown: cfg.Timeout.Teardown,
	}, nil
}

// classifyLoginError maps server rejection wording onto the error
// taxonomy so callers can give the right remediation hint.
func classifyLoginError(err error) mailerr.Kind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "token") || strings.Contains(msg, "oauth") ||
		strings.Contains(msg, "expired"):
		return mailerr.KindAuthExpired
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") ||
		strings.Contains(msg, "credential") || strings.Contains(msg, "password"):
		return mailerr.KindAuthFailed
	default:
		return mailerr.KindConnectionFailed
	}
}

// WithMailbox selects the named mailbox and runs fn while holding the
// session lock. The lock is released on every exit path.
func (s *Session) WithMailbox(name string, fn func(c *client.Client, status *imap.MailboxStatus) error) error {
	const op = "mailbox.select"

	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.client.Select(name, false)
	if err != nil {
		return mailerr.E(mailerr.KindConnectionFailed, op,
			fmt.Errorf("select %s: %w", name, err))
	}
	return fn(s.client, status)
}

// Close attempts a graceful logout within the teardown budget and
// force-terminates the transport on a miss. Servers that hang on
// LOGOUT are common enough that the forced path is expected behavior;
// it is logged at debug level and never surfaces as an error.
func (s *Session) Close() {
	done := make(chan error, 1)
	go func() { done <- s.client.Logout() }()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Debug("logout returned error, ignoring",
				logging.Operation("mailbox.close"),
				logging.Err(err))
		}
	case <-time.After(s.teardown):
		s.client.Terminate()
		s.logger.Debug("logout deadline missed, terminated transport",
			logging.Operation("mailbox.close"),
			slog.Duration("budget", s.teardown))
	}
}
