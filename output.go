package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const defaultSiteURL = "https://codeforces.com"

// siteURL derives the public site root from the first API host,
// e.g. https://codeforces.com/api -> https://codeforces.com.
func siteURL(hosts []string) string {
	if len(hosts) == 0 {
		return defaultSiteURL
	}
	u, err := url.Parse(hosts[0])
	if err != nil || u.Scheme == "" || u.Host == "" {
		return defaultSiteURL
	}
	return u.Scheme + "://" + u.Host
}

// problemURL returns the canonical problemset link for p.
func problemURL(site string, p Problem) string {
	return fmt.Sprintf("%s/problemset/problem/%d/%s", strings.TrimRight(site, "/"), p.ContestID, p.Index)
}

// renderPicks writes the picked problems in rating-list order.
// Styling is dropped automatically when w is not a terminal.
func renderPicks(w io.Writer, ratings []int, picks []Problem, site string) error {
	r := lipgloss.NewRenderer(w)
	var (
		header = r.NewStyle().Bold(true)
		rating = r.NewStyle().Foreground(lipgloss.Color("3"))
		id     = r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
		link   = r.NewStyle().Faint(true)
	)

	if _, err := fmt.Fprintln(w, header.Render(fmt.Sprintf("Selected %d problem(s):", len(picks)))); err != nil {
		return err
	}
	for i, p := range picks {
		rt := 0
		if i < len(ratings) {
			rt = ratings[i]
		}
		_, err := fmt.Fprintf(w, "- %s %s — %s — %s\n",
			rating.Render(fmt.Sprintf("[%d]", rt)),
			id.Render(p.key().String()),
			p.Name,
			link.Render(problemURL(site, p)),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
