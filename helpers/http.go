package helpers

import (
	"bytes"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"net/http/cookiejar"
	"slices"
	"time"

	"golang.org/x/net/html/charset"
)

// Browser-like header profile. The target site serves consumer traffic from
// the Netherlands, so the Accept-Language is pinned to a Dutch locale.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "nl-NL,nl;q=0.9,en-US;q=0.8,en;q=0.7",
	"Cache-Control":             "no-cache",
	"Pragma":                    "no-cache",
	"Sec-Ch-Ua":                 `"Google Chrome";v="119", "Chromium";v="119", "Not?A_Brand";v="24"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
}

// Session wraps an HTTP client with a cookie jar so that a warm-up request
// against the site's homepage carries its cookies into subsequent fetches.
type Session struct {
	client *http.Client
	rnd    *mathrand.Rand
}

// NewSession creates a session with a fresh cookie jar and a fixed timeout
func NewSession(timeout time.Duration) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		rnd: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// WarmUp issues a throwaway GET against url to acquire cookies and look
// organic, then sleeps a uniform random duration in [minDelay, maxDelay].
// Any failure is swallowed: the warm-up is pacing, not a precondition.
func (s *Session) WarmUp(url string, minDelay, maxDelay time.Duration) {
	req, err := http.NewRequest("GET", url, nil)
	if err == nil {
		setBrowserHeaders(req)
		if resp, err := s.client.Do(req); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}
	time.Sleep(RandomDelay(s.rnd, minDelay, maxDelay))
}

// Fetch sends a GET request with the browser header profile, converts the
// response body to UTF-8 (if needed), and returns it as an io.Reader.
func (s *Session) Fetch(url string) (io.Reader, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		retryAfter := resp.Header.Get("Retry-After")
		resp.Body.Close()
		return nil, fmt.Errorf("rate limited; retry after %s", retryAfter)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s unexpected status code: %d", url, resp.StatusCode)
	}

	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))

	// If already UTF-8, return as is
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	// Convert to UTF-8 if necessary
	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return &buf, nil
}

// IsRateLimited reports whether an error returned by Fetch was a rate limit
func IsRateLimited(err error) bool {
	return err != nil && len(err.Error()) >= 12 && err.Error()[:12] == "rate limited"
}

// RandomDelay returns a uniform random duration in [min, max]
func RandomDelay(rnd *mathrand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rnd.Int63n(int64(max-min)))
}

func setBrowserHeaders(req *http.Request) {
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
}
