package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// newHTTPClient builds the client used for every API call. Per-request
// deadlines come from the fetcher, so the client itself has no Timeout.
func newHTTPClient(cfg appConfig, log *logger) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.PreferIPv4 {
		dialer := &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		tr.DialContext = preferIPv4Dialer(dialer)
		log.debug("transport: preferring IPv4")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.CookieFile != "" {
		n, err := loadCookieFile(jar, cfg.CookieFile)
		if err != nil {
			return nil, &ConfigError{Field: "cookie_file", Msg: err.Error()}
		}
		log.debugf("cookies: loaded %d cookies from %s", n, cfg.CookieFile)
	}

	return &http.Client{Transport: tr, Jar: jar}, nil
}

// preferIPv4Dialer dials over IPv4 first and falls back to any family when
// the host has no reachable IPv4 address.
func preferIPv4Dialer(d *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if network == "tcp" || network == "tcp4" {
			conn, err := d.DialContext(ctx, "tcp4", addr)
			if err == nil {
				return conn, nil
			}
			if ctx.Err() != nil {
				return nil, err
			}
		}
		return d.DialContext(ctx, network, addr)
	}
}

// loadCookieFile reads a Netscape/Mozilla cookies.txt export into jar.
// Expiry is ignored so that stale browser exports still authenticate.
func loadCookieFile(jar http.CookieJar, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open cookie file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return readCookies(jar, bufio.NewScanner(f))
}

func readCookies(jar http.CookieJar, sc *bufio.Scanner) (int, error) {
	byDomain := make(map[string][]*http.Cookie)
	var order []string

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			line = strings.TrimPrefix(line, "#HttpOnly_")
			httpOnly = true
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return 0, fmt.Errorf("cookie file line %d: expected 7 tab-separated fields, got %d", lineNo, len(fields))
		}
		domain := strings.TrimSpace(fields[0])
		if domain == "" {
			return 0, fmt.Errorf("cookie file line %d: empty domain", lineNo)
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64); err != nil {
			return 0, fmt.Errorf("cookie file line %d: invalid expiry %q", lineNo, fields[4])
		}

		host := strings.TrimPrefix(domain, ".")
		ck := &http.Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			HttpOnly: httpOnly,
		}
		if strings.EqualFold(fields[1], "TRUE") {
			ck.Domain = host
		}
		if _, seen := byDomain[host]; !seen {
			order = append(order, host)
		}
		byDomain[host] = append(byDomain[host], ck)
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read cookie file: %w", err)
	}

	n := 0
	for _, host := range order {
		u := &url.URL{Scheme: "https", Host: host, Path: "/"}
		jar.SetCookies(u, byDomain[host])
		n += len(byDomain[host])
	}
	return n, nil
}
