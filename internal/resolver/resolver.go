package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"
)

const maxRedirects = 10

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

var (
	ErrRedirectLoop       = errors.New("redirect loop detected")
	ErrRedirectNoLocation = errors.New("redirect without location header")
	ErrUUIDNotFound       = errors.New("uuid not found: no deep link in redirect chain")
)

// Resolver chases a shortened funnel link through its redirect chain until
// the messenger deep link appears and extracts the subscriber UUID from it.
// Redirects are followed manually: the UUID lives in an intermediate hop that
// a regular client would transparently skip.
type Resolver struct {
	http *http.Client
	log  *zap.Logger
}

func New(timeout time.Duration, log *zap.Logger) *Resolver {
	return &Resolver{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log,
	}
}

// ResolveUUID walks the redirect chain starting at rawURL.
func (r *Resolver) ResolveUUID(ctx context.Context, rawURL string) (string, error) {
	current := rawURL
	visited := map[string]bool{}

	for i := 0; i < maxRedirects; i++ {
		if visited[current] {
			return "", ErrRedirectLoop
		}
		visited[current] = true

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return "", fmt.Errorf("failed to build request for %s: %w", current, err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := r.http.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to fetch %s: %w", current, err)
		}
		location := resp.Header.Get("Location")
		_ = resp.Body.Close()

		if (resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound) && location == "" {
			return "", ErrRedirectNoLocation
		}
		if location == "" {
			break
		}

		next, err := absoluteLocation(current, location)
		if err != nil {
			return "", err
		}

		if u, parseErr := url.Parse(next); parseErr == nil && u.Scheme == "tg" {
			return extractUUIDFromDeepLink(next)
		}

		current = next
	}

	return "", ErrUUIDNotFound
}

func absoluteLocation(current, location string) (string, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid location header %q: %w", location, err)
	}
	if loc.IsAbs() {
		return location, nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("invalid current url %q: %w", current, err)
	}
	return base.ResolveReference(loc).String(), nil
}

func extractUUIDFromDeepLink(deepLink string) (string, error) {
	parsed, err := url.Parse(deepLink)
	if err != nil {
		return "", fmt.Errorf("invalid deep link %q: %w", deepLink, err)
	}
	start := parsed.Query().Get("start")
	if start != "" && uuidPattern.MatchString(start) {
		return start, nil
	}
	return "", fmt.Errorf("uuid not found in deep link: %s", deepLink)
}
