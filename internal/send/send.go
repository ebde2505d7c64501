package send

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/mailtools/mailbridge/internal/config"
	"github.com/mailtools/mailbridge/internal/logging"
	"github.com/mailtools/mailbridge/internal/mailerr"
	"github.com/mailtools/mailbridge/internal/provider"
	"github.com/mailtools/mailbridge/internal/store"
	"github.com/mailtools/mailbridge/internal/xoauth2"
)

// ComposeRequest is one outbound message. At least one of Text and
// HTML must be set. Bcc recipients receive the message but never
// appear in its headers.
type ComposeRequest struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Text    string
	HTML    string
}

// Validate checks the request before any network work happens.
func (r ComposeRequest) Validate() error {
	const op = "send.validate"
	if len(r.To) == 0 {
		return mailerr.E(mailerr.KindValidation, op,
			fmt.Errorf("at least one recipient is required"))
	}
	for _, addr := range r.To {
		if !strings.Contains(addr, "@") {
			return mailerr.E(mailerr.KindValidation, op,
				fmt.Errorf("invalid recipient address %q", addr))
		}
	}
	if r.Text == "" && r.HTML == "" {
		return mailerr.E(mailerr.KindValidation, op,
			fmt.Errorf("either text or html body is required"))
	}
	return nil
}

// Deliver composes the message and submits it over SMTP, authenticated
// the same way as the inbound session (password or OAuth bearer). It
// returns the generated Message-ID on success.
func Deliver(rec store.Record, credential string, cfg config.Config, req ComposeRequest, logger *slog.Logger) (string, error) {
	const op = "send.deliver"
	if logger == nil {
		logger = slog.Default()
	}

	if err := req.Validate(); err != nil {
		return "", err
	}

	msgID, raw, err := compose(rec, req)
	if err != nil {
		return "", mailerr.E(mailerr.KindSendFailed, op,
			fmt.Errorf("compose message: %w", err))
	}

	c, err := dial(rec.Server, cfg)
	if err != nil {
		return "", mailerr.E(mailerr.KindConnectionFailed, op, err)
	}
	defer c.Close()

	var auth sasl.Client
	if rec.AuthMode == store.AuthOAuthBearer {
		auth = xoauth2.NewClient(rec.Address, credential)
	} else {
		auth = sasl.NewPlainClient("", rec.Address, credential)
	}
	if err := c.Auth(auth); err != nil {
		return "", mailerr.E(classifyRejection(err), op,
			fmt.Errorf("smtp auth: %w", err))
	}

	if err := c.Mail(rec.Address, nil); err != nil {
		return "", mailerr.E(classifyRejection(err), op,
			fmt.Errorf("mail from: %w", err))
	}
	recipients := make([]string, 0, len(req.To)+len(req.Cc)+len(req.Bcc))
	recipients = append(recipients, req.To...)
	recipients = append(recipients, req.Cc...)
	recipients = append(recipients, req.Bcc...)
	for _, to := range recipients {
		if err := c.Rcpt(to, nil); err != nil {
			return "", mailerr.E(classifyRejection(err), op,
				fmt.Errorf("rcpt %s: %w", to, err))
		}
	}

	w, err := c.Data()
	if err != nil {
		return "", mailerr.E(classifyRejection(err), op,
			fmt.Errorf("data: %w", err))
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return "", mailerr.E(mailerr.KindSendFailed, op,
			fmt.Errorf("write body: %w", err))
	}
	if err := w.Close(); err != nil {
		return "", mailerr.E(classifyRejection(err), op,
			fmt.Errorf("finish data: %w", err))
	}

	// Quit failures after an accepted message are not the caller's
	// problem.
	if err := c.Quit(); err != nil {
		logger.Debug("smtp quit failed, ignoring",
			logging.Operation(op),
			logging.Err(err))
	}

	logger.Info("message submitted",
		logging.Operation(op),
		logging.Account(rec.Address),
		logging.Status(logging.StatusSuccess))
	return msgID, nil
}

// dial opens the submission connection with generous deadlines since
// message bodies may be large. Port 465 is implicit TLS; anything else
// upgrades with STARTTLS.
func dial(server provider.ServerConfig, cfg config.Config) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: cfg.Timeout.Connect}
	tlsConfig := &tls.Config{
		ServerName:         server.SMTPHost,
		InsecureSkipVerify: !cfg.TLS.StrictVerify,
	}

	conn, err := dialer.Dial("tcp", server.SMTPAddr())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", server.SMTPAddr(), err)
	}
	_ = conn.SetDeadline(time.Now().Add(cfg.Timeout.Submit))

	if server.SMTPPort == 465 {
		return smtp.NewClient(tls.Client(conn, tlsConfig)), nil
	}
	return smtp.NewClientStartTLS(conn, tlsConfig)
}

// compose builds an RFC 5322 message with text and/or HTML parts and
// returns the Message-ID and the raw bytes.
func compose(rec store.Record, req ComposeRequest) (string, []byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: rec.DisplayName, Address: rec.Address}})
	h.SetAddressList("To", toAddressList(req.To))
	if len(req.Cc) > 0 {
		h.SetAddressList("Cc", toAddressList(req.Cc))
	}
	h.SetSubject(req.Subject)

	msgID := uuid.NewString() + "@" + addressDomain(rec.Address)
	h.SetMessageID(msgID)

	var buf bytes.Buffer
	if req.Text != "" && req.HTML != "" {
		mw, err := mail.CreateWriter(&buf, h)
		if err != nil {
			return "", nil, err
		}
		inline, err := mw.CreateInline()
		if err != nil {
			return "", nil, err
		}
		if err := writeInlinePart(inline, "text/plain", req.Text); err != nil {
			return "", nil, err
		}
		if err := writeInlinePart(inline, "text/html", req.HTML); err != nil {
			return "", nil, err
		}
		if err := inline.Close(); err != nil {
			return "", nil, err
		}
		if err := mw.Close(); err != nil {
			return "", nil, err
		}
		return msgID, buf.Bytes(), nil
	}

	body, ctype := req.Text, "text/plain"
	if body == "" {
		body, ctype = req.HTML, "text/html"
	}
	h.SetContentType(ctype, map[string]string{"charset": "utf-8"})
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return "", nil, err
	}
	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return msgID, buf.Bytes(), nil
}

func writeInlinePart(inline *mail.InlineWriter, ctype, body string) error {
	var th mail.InlineHeader
	th.Set("Content-Type", ctype+"; charset=utf-8")
	pw, err := inline.CreatePart(th)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(pw, body); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}

func toAddressList(addrs []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &mail.Address{Address: a})
	}
	return out
}

func addressDomain(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 {
		return address[i+1:]
	}
	return "localhost"
}

// classifyRejection sorts provider rejection wording into the error
// taxonomy so callers can offer the right remediation: re-auth for
// token trouble, re-check the password for login trouble, retry for
// everything else.
func classifyRejection(err error) mailerr.Kind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "token") || strings.Contains(msg, "oauth") ||
		strings.Contains(msg, "xoauth") || strings.Contains(msg, "expired"):
		return mailerr.KindAuthExpired
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") ||
		strings.Contains(msg, "credential") || strings.Contains(msg, "password") ||
		strings.Contains(msg, "535"):
		return mailerr.KindAuthFailed
	default:
		return mailerr.KindSendFailed
	}
}
