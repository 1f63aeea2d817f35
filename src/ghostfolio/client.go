package ghostfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/folioimport/src/logger"
)

// ErrUnauthorized signals a 401 from the Ghostfolio API. It is a hard-stop
// condition for the whole run: no output may be written after it.
var ErrUnauthorized = errors.New("ghostfolio API rejected the bearer token (401)")

const (
	lookupCacheExpiration = 30 * time.Minute
	lookupCacheCleanup    = 1 * time.Hour
)

type authResponse struct {
	AuthToken string `json:"authToken"`
}

type lookupResponse struct {
	Items []struct {
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Currency string `json:"currency"`
	} `json:"items"`
}

// Client talks to a Ghostfolio instance. It authenticates once via the
// anonymous auth endpoint and then resolves ISINs to trading symbols through
// the symbol lookup endpoint.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	bearer     string

	// Lookups are rate limited to stay polite towards the instance, and
	// cached per run since statements repeat the same ISIN many times.
	limiter     *rate.Limiter
	lookupCache *cache.Cache
}

func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter:     rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		lookupCache: cache.New(lookupCacheExpiration, lookupCacheCleanup),
	}
}

// Authenticate obtains the bearer token for all subsequent lookups. The
// token is a JWT issued by Ghostfolio; its claims are decoded (without
// signature verification, we are the client) so an already-expired token is
// rejected up front instead of failing on the first lookup.
func (c *Client) Authenticate(ctx context.Context) error {
	authURL := fmt.Sprintf("%s/api/v1/auth/anonymous/%s", c.baseURL, url.PathEscape(c.secret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Ghostfolio auth endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: check GHOSTFOLIO_SECRET", ErrUnauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ghostfolio auth endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("failed to decode Ghostfolio auth response: %w", err)
	}
	if auth.AuthToken == "" {
		return fmt.Errorf("ghostfolio auth response contained no authToken")
	}

	if err := checkTokenExpiry(auth.AuthToken); err != nil {
		return err
	}

	c.bearer = auth.AuthToken
	return nil
}

// checkTokenExpiry decodes the JWT claims to surface the token lifetime. An
// already-expired token is rejected up front: every lookup would 401 anyway,
// and failing here keeps the hard stop at the earliest possible point.
// Tokens that fail to decode are kept: the server side is the authority, a
// 401 on lookup will surface real problems.
func checkTokenExpiry(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		logger.L.Warn("Could not decode authToken claims", "error", err)
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		logger.L.Debug("authToken carries no expiry claim")
		return nil
	}
	if time.Now().After(exp.Time) {
		return fmt.Errorf("%w: authToken expired at %s", ErrUnauthorized, exp.Time.Format(time.RFC3339))
	}
	logger.L.Info("Authenticated against Ghostfolio", "tokenExpiry", exp.Time.Format(time.RFC3339))
	return nil
}

// LookupSymbol resolves an ISIN to a trading symbol. The first candidate
// returned by the instance wins; zero candidates is not an error, the
// activity is simply left without a symbol.
func (c *Client) LookupSymbol(ctx context.Context, isin string) (string, error) {
	if cached, found := c.lookupCache.Get(isin); found {
		return cached.(string), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	lookupURL := fmt.Sprintf("%s/api/v1/symbol/lookup?query=%s", c.baseURL, url.QueryEscape(isin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Ghostfolio symbol lookup for ISIN %s: %w", isin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%w: symbol lookup for ISIN %s", ErrUnauthorized, isin)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ghostfolio symbol lookup returned status %d for ISIN %s: %s", resp.StatusCode, isin, string(body))
	}

	var lookup lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lookup); err != nil {
		return "", fmt.Errorf("failed to decode symbol lookup response for ISIN %s: %w", isin, err)
	}

	symbol := ""
	if len(lookup.Items) > 0 {
		symbol = lookup.Items[0].Symbol
	} else {
		logger.L.Warn("No symbol found for ISIN", "isin", isin)
	}

	c.lookupCache.Set(isin, symbol, cache.DefaultExpiration)
	return symbol, nil
}
