package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"tuneport/internal/catalog"
	"tuneport/internal/config"
	"tuneport/internal/services/extractor"
)

const (
	catalogCheckTimeout   = 15 * time.Second
	extractorCheckTimeout = 5 * time.Second
)

// CheckCatalog verifies that catalog credentials are configured and, when a
// refresh token is used, that the token endpoint accepts it.
func CheckCatalog(ctx context.Context, cfg *config.Config) Result {
	const name = "Catalog credentials"

	checkCtx, cancel := context.WithTimeout(ctx, catalogCheckTimeout)
	defer cancel()

	ts, err := catalog.NewTokenSource(checkCtx, cfg.Catalog)
	if err != nil {
		return Result{Name: name, Detail: "no credentials configured"}
	}
	if _, err := ts.Token(); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("token refresh failed (%s)", summarizeError(err))}
	}
	if !refreshConfigured(cfg.Catalog) {
		return Result{Name: name, Passed: true, Detail: "static access token (not refreshed)"}
	}
	return Result{Name: name, Passed: true, Detail: "token refresh ok"}
}

func refreshConfigured(cfg config.Catalog) bool {
	return strings.TrimSpace(cfg.ClientID) != "" &&
		strings.TrimSpace(cfg.ClientSecret) != "" &&
		strings.TrimSpace(cfg.RefreshToken) != ""
}

// CheckExtractor probes the extractor's health endpoint.
func CheckExtractor(ctx context.Context, name, baseURL, token string) Result {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	client, err := extractor.New(base, extractorCheckTimeout, extractor.WithToken(token))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, extractorCheckTimeout)
	defer cancel()
	if err := client.Health(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", client.BaseURL(), summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (healthy)", client.BaseURL())}
}

// CheckLossless validates the lossless service settings without a request;
// the service has no side-effect free probe.
func CheckLossless(cfg config.Lossless) Result {
	const name = "Lossless service"
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return Result{Name: name, Detail: "missing endpoint"}
	}
	if len(cfg.Sources) == 0 {
		return Result{Name: name, Detail: "no sources configured"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", cfg.Endpoint, strings.Join(cfg.Sources, ", "))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
