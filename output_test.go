package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteURL(t *testing.T) {
	assert.Equal(t, "https://codeforces.com", siteURL(defaultAPIHosts))
	assert.Equal(t, "http://127.0.0.1:8080", siteURL([]string{"http://127.0.0.1:8080/api"}))
	assert.Equal(t, defaultSiteURL, siteURL(nil))
	assert.Equal(t, defaultSiteURL, siteURL([]string{"::not a url"}))
}

func TestProblemURL(t *testing.T) {
	assert.Equal(t,
		"https://codeforces.com/problemset/problem/1915/C1",
		problemURL("https://codeforces.com/", prob(1915, "C1", 1200)))
}

func TestRenderPicks(t *testing.T) {
	var buf bytes.Buffer
	picks := []Problem{prob(1915, "C", 1200), prob(1850, "A", 800)}
	picks[0].Name = "Odd One Out"

	require.NoError(t, renderPicks(&buf, []int{1200, 800}, picks, "https://codeforces.com"))

	want := "Selected 2 problem(s):\n" +
		"- [1200] 1915C — Odd One Out — https://codeforces.com/problemset/problem/1915/C\n" +
		"- [800] 1850A — Problem A — https://codeforces.com/problemset/problem/1850/A\n"
	assert.Equal(t, want, buf.String())
}
