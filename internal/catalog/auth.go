package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"tuneport/internal/config"
	"tuneport/internal/services"
)

// NewTokenSource builds the OAuth2 token source for the configured
// credentials. A refresh token takes priority over a static access token.
func NewTokenSource(ctx context.Context, cfg config.Catalog) (oauth2.TokenSource, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.ClientSecret)
	refresh := strings.TrimSpace(cfg.RefreshToken)
	if clientID != "" && secret != "" && refresh != "" {
		conf := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: secret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  strings.TrimSpace(cfg.TokenURL),
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		}
		return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}), nil
	}
	if access := strings.TrimSpace(cfg.AccessToken); access != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}), nil
	}
	return nil, services.Wrap(services.ErrConfiguration, "catalog", "token source", "no catalog credentials configured", nil)
}

// NewHTTPClient returns an HTTP client that injects bearer tokens from ts
// and bounds each request by timeout.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource, timeout time.Duration) *http.Client {
	client := oauth2.NewClient(ctx, ts)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}

// NewFromConfig wires the token source, HTTP client and Client for cfg.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, *http.Client, error) {
	if cfg == nil {
		return nil, nil, errors.New("catalog: config required")
	}
	ts, err := NewTokenSource(ctx, cfg.Catalog)
	if err != nil {
		return nil, nil, err
	}
	httpClient := NewHTTPClient(ctx, ts, cfg.CatalogTimeout())
	base := []Option{
		WithHTTPClient(httpClient),
		WithMarket(cfg.Catalog.Market),
		WithMaxRateLimitRetries(cfg.Catalog.MaxRateLimitRetries),
	}
	client, err := New(cfg.Catalog.BaseURL, append(base, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return client, httpClient, nil
}

// isTokenError reports whether err came from a failed token refresh.
func isTokenError(err error) bool {
	var retrieve *oauth2.RetrieveError
	return errors.As(err, &retrieve)
}
