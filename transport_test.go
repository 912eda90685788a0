package main

import (
	"bufio"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookiesTxt = "# Netscape HTTP Cookie File\n" +
	"# exported by a browser extension\n" +
	"\n" +
	".codeforces.com\tTRUE\t/\tTRUE\t1\tJSESSIONID\tabc123\n" +
	"#HttpOnly_codeforces.com\tFALSE\t/\tFALSE\t0\t39ce7\tCFsession\n" +
	".example.org\tTRUE\t/\tFALSE\t4102444800\tother\tx\n"

func cookieNames(jar http.CookieJar, raw string) []string {
	u, _ := url.Parse(raw)
	var names []string
	for _, c := range jar.Cookies(u) {
		names = append(names, c.Name)
	}
	return names
}

func TestReadCookies(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	n, err := readCookies(jar, bufio.NewScanner(strings.NewReader(cookiesTxt)))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.ElementsMatch(t, []string{"JSESSIONID", "39ce7"}, cookieNames(jar, "https://codeforces.com/api/user.status"))
	assert.Equal(t, []string{"JSESSIONID"}, cookieNames(jar, "https://www.codeforces.com/api/user.status"))
	assert.Equal(t, []string{"other"}, cookieNames(jar, "https://example.org/"))
}

func TestReadCookies_Malformed(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	_, err = readCookies(jar, bufio.NewScanner(strings.NewReader("codeforces.com\tTRUE\t/\n")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")

	_, err = readCookies(jar, bufio.NewScanner(strings.NewReader("codeforces.com\tTRUE\t/\tFALSE\tsoon\ta\tb\n")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid expiry")
}

func TestNewHTTPClient_CookieFile(t *testing.T) {
	cfg := defaultConfig()
	cfg.CookieFile = writeConfig(t, "cookies.txt", cookiesTxt)

	hc, err := newHTTPClient(cfg, nopLogger())
	require.NoError(t, err)
	assert.Contains(t, cookieNames(hc.Jar, "https://codeforces.com/"), "JSESSIONID")
}

func TestNewHTTPClient_MissingCookieFileIsConfigError(t *testing.T) {
	cfg := defaultConfig()
	cfg.CookieFile = filepath.Join(t.TempDir(), "nope.txt")

	_, err := newHTTPClient(cfg, nopLogger())
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cookie_file", ce.Field)
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestPreferIPv4Client(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, "pong")
	}))
	t.Cleanup(srv.Close)

	cfg := defaultConfig()
	cfg.PreferIPv4 = true
	cfg.APIHosts = []string{srv.URL + "/api"}
	cfg.MinInterval = 0
	c, err := newAPIClient(cfg, nopLogger())
	require.NoError(t, err)

	var out string
	require.NoError(t, c.call(context.Background(), "ping", nil, &out))
	assert.Equal(t, "pong", out)
}
