package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/mailtools/mailbridge/internal/config"
	"github.com/mailtools/mailbridge/internal/instrumentation"
	"github.com/mailtools/mailbridge/internal/logging"
	"github.com/mailtools/mailbridge/internal/mailerr"
	"github.com/mailtools/mailbridge/internal/provider"
	"github.com/mailtools/mailbridge/internal/store"
)

// FreshnessWindow is the minimum remaining validity a token must have
// before it is handed out. Tokens closer to expiry are refreshed first
// so that a long-running mail operation does not outlive its token.
const FreshnessWindow = 5 * time.Minute

// defaultTokenLifetime is assumed when a refresh response omits the
// expiry. One hour matches what the major providers issue.
const defaultTokenLifetime = time.Hour

// refreshResult is the normalized outcome of a successful refresh,
// whichever strategy produced it.
type refreshResult struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// strategy is one way of exchanging a refresh token for a fresh access
// token. Strategies are tried in order until one succeeds.
type strategy interface {
	Name() string
	Refresh(ctx context.Context, rec store.Record) (refreshResult, error)
}

// Manager owns the token lifecycle for oauth accounts: freshness
// checks, the refresh strategy chain, persistence of refreshed state,
// and the staleness sweep.
//
// Persistence is per-record last-writer-wins. Two concurrent refreshes
// of the same account both succeed and the later write sticks; both
// tokens are valid, so this loses nothing but a few token-endpoint
// round trips.
type Manager struct {
	store      *store.Store
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	strategies []strategy
	staleAfter time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewManager builds a Manager from configuration. The remote refresh
// endpoint, when configured, is tried before direct provider refresh.
// metrics may be nil when instrumentation is disabled.
func NewManager(st *store.Store, cfg config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:      st,
		logger:     logger,
		metrics:    metrics,
		staleAfter: cfg.Sweep.StaleAfter,
		now:        time.Now,
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.OAuth.RefreshEndpoint != "" {
		m.strategies = append(m.strategies, &remoteRefresh{
			endpoint: cfg.OAuth.RefreshEndpoint,
			client:   httpClient,
		})
	}
	m.strategies = append(m.strategies, &directRefresh{
		clientID:     cfg.OAuth.ClientID,
		clientSecret: cfg.OAuth.ClientSecret,
	})
	return m
}

// EnsureUsable returns an access token for the record that is valid for
// at least FreshnessWindow, refreshing through the strategy chain when
// needed. A successful refresh is persisted before returning; the
// updated record is returned alongside the token.
//
// Password-mode records pass straight through with their stored secret.
func (m *Manager) EnsureUsable(ctx context.Context, rec store.Record) (store.Record, string, error) {
	const op = "token.ensure_usable"

	// Soft-disabled records stay failed until the user re-authenticates.
	// Retrying the refresh here would be the repeated-failure churn the
	// sweep disabled them to stop.
	if !rec.Active {
		return rec, "", mailerr.E(mailerr.KindAuthExpired, op,
			fmt.Errorf("account %s is disabled and needs re-authentication", rec.Address))
	}

	if rec.AuthMode == store.AuthPassword {
		return rec, rec.Secret, nil
	}

	if rec.AccessToken != "" && rec.TokenExpiry.After(m.now().Add(FreshnessWindow)) {
		return rec, rec.AccessToken, nil
	}

	if rec.RefreshToken == "" {
		return rec, "", mailerr.E(mailerr.KindAuthExpired, op,
			fmt.Errorf("account %s has no refresh token", rec.Address))
	}

	updated, err := m.refresh(ctx, rec)
	if err != nil {
		return rec, "", err
	}
	return updated, updated.AccessToken, nil
}

// refresh walks the strategy chain, persists the first success, and
// classifies exhaustion as AuthExpired.
func (m *Manager) refresh(ctx context.Context, rec store.Record) (store.Record, error) {
	const op = "token.refresh"
	logger := logging.WithOperation(m.logger, op)

	var errs []error
	for _, s := range m.strategies {
		res, err := s.Refresh(ctx, rec)
		if err != nil {
			logger.Debug("refresh strategy failed",
				slog.String("strategy", s.Name()),
				logging.Account(rec.Address),
				logging.Err(err))
			if m.metrics != nil {
				m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultFailure, s.Name())
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if m.metrics != nil {
			m.metrics.RecordTokenRefresh(ctx, instrumentation.RefreshResultSuccess, s.Name())
		}

		rec.AccessToken = res.AccessToken
		if res.RefreshToken != "" {
			rec.RefreshToken = res.RefreshToken
		}
		rec.TokenExpiry = res.Expiry
		rec.Active = true
		rec.LastAuthenticatedAt = m.now()

		if err := m.store.Upsert(rec); err != nil {
			return rec, fmt.Errorf("persist refreshed token: %w", err)
		}

		logger.Info("token refreshed",
			slog.String("strategy", s.Name()),
			logging.Account(rec.Address),
			logging.Status(logging.StatusSuccess))
		return rec, nil
	}

	return rec, mailerr.E(mailerr.KindAuthExpired, op,
		fmt.Errorf("all refresh strategies failed for %s: %w", rec.Address, errors.Join(errs...)))
}

// SweepResult summarizes one pass over the store.
type SweepResult struct {
	Checked   int
	Refreshed int
	Disabled  int
}

// Sweep refreshes every active oauth record whose token is inside the
// freshness window. Records whose refresh fails and whose token has
// been expired for longer than the staleness threshold are
// soft-disabled so that lookups report a needs-re-auth status instead
// of repeatedly failing connections.
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	const op = "token.sweep"
	logger := logging.WithOperation(m.logger, op)

	recs, err := m.store.ListAll()
	if err != nil {
		return SweepResult{}, fmt.Errorf("list accounts: %w", err)
	}

	var res SweepResult
	for _, rec := range recs {
		if rec.AuthMode != store.AuthOAuthBearer || !rec.Active {
			continue
		}
		if rec.TokenExpiry.After(m.now().Add(FreshnessWindow)) {
			continue
		}
		res.Checked++

		if _, err := m.refresh(ctx, rec); err == nil {
			res.Refreshed++
			continue
		}

		if m.staleAfter > 0 && m.now().Sub(rec.TokenExpiry) > m.staleAfter {
			rec.Active = false
			if err := m.store.Upsert(rec); err != nil {
				logger.Warn("failed to persist disabled account",
					logging.Account(rec.Address),
					logging.Err(err))
				continue
			}
			res.Disabled++
			if m.metrics != nil {
				m.metrics.RecordAccountDisabled(ctx)
			}
			logger.Info("account disabled after stale token",
				logging.Account(rec.Address))
		}
	}

	logger.Info("sweep complete",
		slog.Int("checked", res.Checked),
		slog.Int("refreshed", res.Refreshed),
		slog.Int("disabled", res.Disabled))
	return res, nil
}

// Run performs a boot-time sweep and then sweeps on the given interval
// until the context is cancelled. A zero interval means boot-time only.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if _, err := m.Sweep(ctx); err != nil {
		m.logger.Warn("boot-time sweep failed", logging.Err(err))
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Warn("periodic sweep failed", logging.Err(err))
			}
		}
	}
}

// remoteRefresh exchanges the refresh token against a deployed refresh
// service that holds the provider client credentials.
type remoteRefresh struct {
	endpoint string
	client   *http.Client
}

func (r *remoteRefresh) Name() string { return "remote_endpoint" }

type remoteRefreshRequest struct {
	Address      string `json:"address"`
	RefreshToken string `json:"refreshToken"`
}

type remoteRefreshResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    string `json:"expiresAt,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (r *remoteRefresh) Refresh(ctx context.Context, rec store.Record) (refreshResult, error) {
	body, err := json.Marshal(remoteRefreshRequest{
		Address:      rec.Address,
		RefreshToken: rec.RefreshToken,
	})
	if err != nil {
		return refreshResult{}, fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return refreshResult{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return refreshResult{}, fmt.Errorf("call refresh endpoint: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return refreshResult{}, fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return refreshResult{}, fmt.Errorf("refresh endpoint returned %d", resp.StatusCode)
	}

	var parsed remoteRefreshResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return refreshResult{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if !parsed.Success || parsed.AccessToken == "" {
		if parsed.Error != "" {
			return refreshResult{}, errors.New(parsed.Error)
		}
		return refreshResult{}, errors.New("refresh endpoint reported failure")
	}

	expiry := time.Now().Add(defaultTokenLifetime)
	if parsed.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, parsed.ExpiresAt); err == nil {
			expiry = t
		}
	}

	return refreshResult{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		Expiry:       expiry,
	}, nil
}

// directRefresh goes straight to the provider token endpoint with the
// process-wide client credentials.
type directRefresh struct {
	clientID     string
	clientSecret string
}

func (d *directRefresh) Name() string { return "direct_provider" }

func (d *directRefresh) Refresh(ctx context.Context, rec store.Record) (refreshResult, error) {
	tokenURL := provider.TokenURL(rec.Address)
	if tokenURL == "" {
		return refreshResult{}, fmt.Errorf("no token endpoint known for %s", rec.Address)
	}
	if d.clientID == "" {
		return refreshResult{}, errors.New("no oauth client credentials configured")
	}

	conf := &oauth2.Config{
		ClientID:     d.clientID,
		ClientSecret: d.clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return refreshResult{}, fmt.Errorf("provider token exchange: %w", err)
	}

	res := refreshResult{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}
	if tok.RefreshToken != rec.RefreshToken {
		res.RefreshToken = tok.RefreshToken
	}
	if res.Expiry.IsZero() {
		res.Expiry = time.Now().Add(defaultTokenLifetime)
	}
	return res, nil
}
