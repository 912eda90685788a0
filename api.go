package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseSize caps a single response body. The full problemset is a few MB.
const maxResponseSize = 64 << 20

// errNonJSON marks an HTML block or challenge page served instead of API data.
var errNonJSON = errors.New("non-JSON HTML response (likely WAF/challenge page)")

// transientComments are API comments worth retrying.
var transientComments = []string{
	"limit exceeded",
	"service unavailable",
	"please try again later",
}

// retryPolicy controls how a single fetch retries.
type retryPolicy struct {
	Retries int           // rounds over all hosts
	Backoff time.Duration // base sleep between rounds, doubled every round
	Timeout time.Duration // per-request deadline
}

// apiClient handles HTTP communication with the remote API.
type apiClient struct {
	hosts     []string
	userAgent string
	http      *http.Client
	throttle  *throttle
	retry     retryPolicy
	sleep     func(context.Context, time.Duration) error
	log       *logger
}

// newAPIClient creates a client from the networking part of cfg.
func newAPIClient(cfg appConfig, log *logger) (*apiClient, error) {
	if len(cfg.APIHosts) == 0 {
		return nil, &ConfigError{Field: "api_hosts", Msg: "must be a non-empty list"}
	}
	hosts := make([]string, 0, len(cfg.APIHosts))
	for _, h := range cfg.APIHosts {
		u, err := url.Parse(h)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, &ConfigError{Field: "api_hosts", Msg: fmt.Sprintf("invalid host %q", h)}
		}
		hosts = append(hosts, strings.TrimRight(h, "/"))
	}

	hc, err := newHTTPClient(cfg, log)
	if err != nil {
		return nil, err
	}

	c := &apiClient{
		hosts:     hosts,
		userAgent: cfg.UserAgent,
		http:      hc,
		throttle:  newThrottle(cfg.minInterval(), log),
		retry: retryPolicy{
			Retries: cfg.Retries,
			Backoff: cfg.backoff(),
			Timeout: cfg.timeout(),
		},
		sleep: sleepCtx,
		log:   log,
	}
	if c.userAgent == "" {
		c.userAgent = defaultUA
	}
	return c, nil
}

// envelope is the wrapper around every API response.
type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// apiStatusError is a response whose envelope status is not OK.
type apiStatusError struct {
	HTTPStatus int
	Comment    string
}

func (e *apiStatusError) Error() string {
	msg := e.Comment
	if msg == "" {
		msg = "FAILED"
	}
	if e.HTTPStatus != 0 && e.HTTPStatus != http.StatusOK {
		return fmt.Sprintf("%s (http %d)", msg, e.HTTPStatus)
	}
	return msg
}

// transient reports whether the comment signals a retryable condition.
func (e *apiStatusError) transient() bool {
	lc := strings.ToLower(e.Comment)
	for _, s := range transientComments {
		if strings.Contains(lc, s) {
			return true
		}
	}
	return false
}

// FetchError is returned when an endpoint cannot be fetched.
type FetchError struct {
	Path      string
	Err       error
	Exhausted bool
}

func (e *FetchError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("%s: exhausted retries; last error: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// call fetches path with the client's retry policy and decodes the result into out.
func (c *apiClient) call(ctx context.Context, path string, params url.Values, out any) error {
	raw, err := c.fetch(ctx, path, params, c.retry)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &FetchError{Path: path, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// fetch GETs path, rotating across hosts within each round and backing off
// exponentially between rounds. Every attempt waits on the shared throttle.
// A non-transient API status fails immediately.
func (c *apiClient) fetch(ctx context.Context, path string, params url.Values, p retryPolicy) (json.RawMessage, error) {
	rounds := max(1, p.Retries)
	var lastErr error
	for i := 0; i < rounds; i++ {
		for _, base := range c.hosts {
			if err := c.throttle.wait(ctx); err != nil {
				return nil, &FetchError{Path: path, Err: err}
			}
			res, err := c.attempt(ctx, base, path, params, p.Timeout)
			if err == nil {
				return res, nil
			}
			if ctx.Err() != nil {
				return nil, &FetchError{Path: path, Err: ctx.Err()}
			}
			lastErr = err

			var se *apiStatusError
			if errors.As(err, &se) && !se.transient() {
				return nil, &FetchError{Path: path, Err: err}
			}
			if errors.Is(err, errNonJSON) {
				c.log.warnf("fetch %s: %s served a challenge page, trying next host", path, base)
			} else {
				c.log.debugf("fetch %s host=%s try %d/%d: %v", path, base, i+1, rounds, err)
			}
		}
		if i == rounds-1 {
			break
		}
		wait := p.Backoff * time.Duration(1<<i)
		if wait > 0 {
			c.log.debugf("fetch %s: round %d failed, backing off %s", path, i+1, wait.Round(10*time.Millisecond))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, &FetchError{Path: path, Err: err}
			}
		}
	}
	return nil, &FetchError{Path: path, Err: lastErr, Exhausted: true}
}

// attempt performs one GET against one host.
func (c *apiClient) attempt(ctx context.Context, base, path string, params url.Values, timeout time.Duration) (json.RawMessage, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reqURL := base + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ctype, "application/json") && looksLikeHTML(b) {
		return nil, fmt.Errorf("http %d: %w", resp.StatusCode, errNonJSON)
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("parse response (http %d): %w", resp.StatusCode, err)
	}
	if env.Status == "OK" {
		return env.Result, nil
	}
	return nil, &apiStatusError{HTTPStatus: resp.StatusCode, Comment: strings.TrimSpace(env.Comment)}
}

// looksLikeHTML reports whether body starts like an HTML document.
func looksLikeHTML(body []byte) bool {
	t := bytes.TrimLeft(body, " \t\r\n")
	if len(t) > 32 {
		t = t[:32]
	}
	t = bytes.ToLower(t)
	return bytes.HasPrefix(t, []byte("<!doctype html")) || bytes.HasPrefix(t, []byte("<html"))
}
