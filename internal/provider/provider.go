// Package provider resolves mail server settings from an email address.
//
// Server endpoints are derived from a static provider table rather than
// user input; unknown domains fall back to the conventional
// imap.<domain>/smtp.<domain> naming.
package provider

import (
	"fmt"
	"strings"
)

// ServerConfig holds the connection endpoints for one account. It is
// derived from the provider table and stored on the credential record so
// that a session can be opened without another lookup.
type ServerConfig struct {
	IMAPHost string `json:"imap_host" toml:"imap_host"`
	IMAPPort int    `json:"imap_port" toml:"imap_port"`
	SMTPHost string `json:"smtp_host" toml:"smtp_host"`
	SMTPPort int    `json:"smtp_port" toml:"smtp_port"`
	UseTLS   bool   `json:"use_tls" toml:"use_tls"`
}

// IMAPAddr returns the host:port dial address for IMAP.
func (c ServerConfig) IMAPAddr() string {
	return fmt.Sprintf("%s:%d", c.IMAPHost, c.IMAPPort)
}

// SMTPAddr returns the host:port dial address for message submission.
func (c ServerConfig) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

// Info describes a known mail provider.
type Info struct {
	// Name is the short provider identifier (e.g. "gmail", "qq").
	Name string

	// Server holds the fixed IMAP/SMTP endpoints.
	Server ServerConfig

	// TokenURL is the provider's OAuth token endpoint, used by the
	// direct-refresh fallback. Empty for password-only providers.
	TokenURL string

	// SupportsOAuth reports whether the provider accepts XOAUTH2.
	SupportsOAuth bool
}

// providers maps email domains to their provider entry. Endpoints are
// fixed per provider and never user supplied.
var providers = map[string]Info{
	"gmail.com": {
		Name:          "gmail",
		Server:        ServerConfig{IMAPHost: "imap.gmail.com", IMAPPort: 993, SMTPHost: "smtp.gmail.com", SMTPPort: 465, UseTLS: true},
		TokenURL:      "https://oauth2.googleapis.com/token",
		SupportsOAuth: true,
	},
	"qq.com": {
		Name:          "qq",
		Server:        ServerConfig{IMAPHost: "imap.qq.com", IMAPPort: 993, SMTPHost: "smtp.qq.com", SMTPPort: 465, UseTLS: true},
		SupportsOAuth: false,
	},
	"foxmail.com": {
		Name:          "qq",
		Server:        ServerConfig{IMAPHost: "imap.qq.com", IMAPPort: 993, SMTPHost: "smtp.qq.com", SMTPPort: 465, UseTLS: true},
		SupportsOAuth: false,
	},
	"163.com": {
		Name:   "netease",
		Server: ServerConfig{IMAPHost: "imap.163.com", IMAPPort: 993, SMTPHost: "smtp.163.com", SMTPPort: 465, UseTLS: true},
	},
	"126.com": {
		Name:   "netease",
		Server: ServerConfig{IMAPHost: "imap.126.com", IMAPPort: 993, SMTPHost: "smtp.126.com", SMTPPort: 465, UseTLS: true},
	},
	"outlook.com": {
		Name:          "outlook",
		Server:        ServerConfig{IMAPHost: "outlook.office365.com", IMAPPort: 993, SMTPHost: "smtp.office365.com", SMTPPort: 587, UseTLS: true},
		TokenURL:      "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		SupportsOAuth: true,
	},
	"hotmail.com": {
		Name:          "outlook",
		Server:        ServerConfig{IMAPHost: "outlook.office365.com", IMAPPort: 993, SMTPHost: "smtp.office365.com", SMTPPort: 587, UseTLS: true},
		TokenURL:      "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		SupportsOAuth: true,
	},
	"yahoo.com": {
		Name:   "yahoo",
		Server: ServerConfig{IMAPHost: "imap.mail.yahoo.com", IMAPPort: 993, SMTPHost: "smtp.mail.yahoo.com", SMTPPort: 465, UseTLS: true},
	},
	"icloud.com": {
		Name:   "icloud",
		Server: ServerConfig{IMAPHost: "imap.mail.me.com", IMAPPort: 993, SMTPHost: "smtp.mail.me.com", SMTPPort: 587, UseTLS: true},
	},
	"fastmail.com": {
		Name:   "fastmail",
		Server: ServerConfig{IMAPHost: "imap.fastmail.com", IMAPPort: 993, SMTPHost: "smtp.fastmail.com", SMTPPort: 465, UseTLS: true},
	},
}

// Domain extracts the domain part of an email address.
func Domain(address string) (string, error) {
	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid email address %q", address)
	}
	return strings.ToLower(parts[1]), nil
}

// Lookup returns the provider entry for an email address. The second
// return value reports whether the domain is a known provider.
func Lookup(address string) (Info, bool) {
	domain, err := Domain(address)
	if err != nil {
		return Info{}, false
	}
	info, ok := providers[domain]
	return info, ok
}

// Resolve returns the server configuration for an address, falling back
// to the imap.<domain>/smtp.<domain> convention for unknown domains.
func Resolve(address string) (ServerConfig, error) {
	if info, ok := Lookup(address); ok {
		return info.Server, nil
	}
	domain, err := Domain(address)
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		IMAPHost: "imap." + domain,
		IMAPPort: 993,
		SMTPHost: "smtp." + domain,
		SMTPPort: 465,
		UseTLS:   true,
	}, nil
}

// TokenURL returns the OAuth token endpoint for an address, or "" when
// the provider does not support OAuth.
func TokenURL(address string) string {
	if info, ok := Lookup(address); ok {
		return info.TokenURL
	}
	return ""
}
