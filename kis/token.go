package kis

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// TokenManager owns the cached access token. The cell is the only shared
// mutable state of the core; tokens are replaced whole, never mutated.
// Issuance is single-flight: concurrent callers during an in-progress
// issuance share its outcome.
type TokenManager struct {
	conf  *Config
	tr    *transport
	cell  atomic.Pointer[AccessToken]
	group singleflight.Group
	lg    zerolog.Logger
}

func NewTokenManager(conf *Config, tr *transport) *TokenManager {
	return &TokenManager{
		conf: conf,
		tr:   tr,
		lg:   moduleLogger("KisToken"),
	}
}

// GetValidToken returns a non-expired token, issuing one when the cache is
// empty or expired. A token inside the refresh lead is returned as-is while
// a background refresh runs; 갱신 실패 시 기존 토큰 유지.
func (m *TokenManager) GetValidToken(ctx context.Context) (*AccessToken, error) {

	cur := m.cell.Load()
	if cur != nil && !cur.IsExpired() {
		if cur.IsStale(m.conf.RefreshLead) {
			m.lg.Info().Time("expiresAt", cur.ExpiresAt()).Msg("Token will expire soon, refreshing proactively")
			go m.refreshInBackground()
		}
		return cur, nil
	}

	m.lg.Info().Msg("Token is missing or expired, requesting new token")
	return m.issueShared(ctx)
}

// IssueNew forces a fresh issuance and atomically replaces the cache.
func (m *TokenManager) IssueNew(ctx context.Context) (*AccessToken, error) {
	return m.issueShared(ctx)
}

// Revoke posts revocation for the cached token. The cache is cleared even
// when the vendor call fails; 폐기 실패는 무시.
func (m *TokenManager) Revoke(ctx context.Context) error {
	cur := m.cell.Load()
	if cur == nil {
		return nil
	}

	err := m.tr.send(ctx, http.MethodPost, tokenRevokeEndpoint,
		map[string]string{"authorization": cur.Bearer()}, nil, nil, nil)

	m.cell.Store(nil)

	if err != nil {
		m.lg.Warn().Err(err).Msg("Failed to revoke access token")
		return nil
	}
	m.lg.Info().Msg("Successfully revoked access token")
	return nil
}

// Invalidate clears the cache without a network call.
func (m *TokenManager) Invalidate() {
	m.cell.Store(nil)
}

func (m *TokenManager) HasValid() bool {
	cur := m.cell.Load()
	return cur != nil && !cur.IsExpired()
}

// Cached returns the current cache content, expired or not.
func (m *TokenManager) Cached() *AccessToken {
	return m.cell.Load()
}

func (m *TokenManager) ExpirationTime() (time.Time, bool) {
	cur := m.cell.Load()
	if cur == nil {
		return time.Time{}, false
	}
	return cur.ExpiresAt(), true
}

func (m *TokenManager) issueShared(ctx context.Context) (*AccessToken, error) {
	v, err, _ := m.group.Do("issue", func() (any, error) {
		return m.issue(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AccessToken), nil
}

func (m *TokenManager) issue(ctx context.Context) (*AccessToken, error) {

	var token AccessToken
	err := retryCall(ctx, m.lg, "token issue", func(ctx context.Context) error {
		token = AccessToken{}
		return m.tr.send(ctx, http.MethodPost, tokenEndpoint, nil, nil,
			newTokenRequest(m.conf.AppKey, m.conf.AppSecret), &token)
	})
	if err != nil {
		// 실패 시 캐시는 건드리지 않음
		return nil, err
	}
	if token.Value == "" {
		return nil, newError(KindProtocol, "token response has empty access_token")
	}

	token.IssuedAt = time.Now()
	m.cell.Store(&token)

	m.lg.Info().
		Str("token", mask(token.Value)).
		Time("expiresAt", token.ExpiresAt()).
		Msg("Successfully obtained new access token")
	return &token, nil
}

func (m *TokenManager) refreshInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), m.conf.Timeout.Read)
	defer cancel()

	if _, err := m.issueShared(ctx); err != nil {
		m.lg.Warn().Err(err).Msg("Proactive token refresh failed, keeping current token")
	}
}
