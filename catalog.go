package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Problem is a problemset entry as served by problemset.problems.
type Problem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    *int     `json:"rating,omitempty"`
	Tags      []string `json:"tags"`
}

// problemKey identifies a problem across the whole site.
type problemKey struct {
	ContestID int
	Index     string
}

func (p Problem) key() problemKey { return problemKey{ContestID: p.ContestID, Index: p.Index} }

func (k problemKey) String() string { return fmt.Sprintf("%d%s", k.ContestID, k.Index) }

type problemsetResult struct {
	Problems []Problem `json:"problems"`
}

// contest is an entry of contest.list.
type contest struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	StartTimeSeconds *int64 `json:"startTimeSeconds"`
	Gym              bool   `json:"gym"`
}

// contestMeta is what filtering needs to know about a contest.
type contestMeta struct {
	Year int
	Name string
}

// catalogFilter selects which problems become candidates.
type catalogFilter struct {
	Ratings             map[int]struct{}
	YearMin, YearMax    int
	ExcludeNamePatterns []string
	ExcludeContestIDs   []int
}

func newCatalogFilter(cfg appConfig) catalogFilter {
	ratings := make(map[int]struct{}, len(cfg.Ratings))
	for _, r := range cfg.Ratings {
		ratings[r] = struct{}{}
	}
	return catalogFilter{
		Ratings:             ratings,
		YearMin:             *cfg.YearMin,
		YearMax:             *cfg.YearMax,
		ExcludeNamePatterns: cfg.ExcludeNamePatterns,
		ExcludeContestIDs:   cfg.ExcludeContestIDs,
	}
}

// loadContestMeta returns metadata for every non-gym contest with a start time.
func loadContestMeta(ctx context.Context, c *apiClient) (map[int]contestMeta, error) {
	var contests []contest
	if err := c.call(ctx, "contest.list", url.Values{"gym": {"false"}}, &contests); err != nil {
		return nil, err
	}
	return contestMetaFrom(contests), nil
}

func contestMetaFrom(contests []contest) map[int]contestMeta {
	meta := make(map[int]contestMeta, len(contests))
	for _, ct := range contests {
		if ct.Gym || ct.ID == 0 || ct.StartTimeSeconds == nil || *ct.StartTimeSeconds == 0 {
			continue
		}
		meta[ct.ID] = contestMeta{
			Year: time.Unix(*ct.StartTimeSeconds, 0).UTC().Year(),
			Name: ct.Name,
		}
	}
	return meta
}

// loadFiltered fetches the catalog and contest list and returns the problems
// passing f, in catalog order.
func loadFiltered(ctx context.Context, c *apiClient, f catalogFilter) ([]Problem, error) {
	var ps problemsetResult
	if err := c.call(ctx, "problemset.problems", nil, &ps); err != nil {
		return nil, err
	}
	meta, err := loadContestMeta(ctx, c)
	if err != nil {
		return nil, err
	}
	c.log.debugf("catalog: %d problems, %d contests", len(ps.Problems), len(meta))

	excluded := excludedContests(meta, f)
	c.log.debugf("filter: %d contests excluded", len(excluded))

	out := filterProblems(ps.Problems, meta, excluded, f)
	c.log.debugf("filter: %d candidates", len(out))
	return out, nil
}

// excludedContests merges explicit ids with contests whose name contains any
// pattern, case-insensitively.
func excludedContests(meta map[int]contestMeta, f catalogFilter) map[int]struct{} {
	excl := make(map[int]struct{}, len(f.ExcludeContestIDs))
	for _, id := range f.ExcludeContestIDs {
		excl[id] = struct{}{}
	}

	pats := make([]string, 0, len(f.ExcludeNamePatterns))
	for _, p := range f.ExcludeNamePatterns {
		if p = strings.ToLower(p); p != "" {
			pats = append(pats, p)
		}
	}
	if len(pats) == 0 {
		return excl
	}
	for id, m := range meta {
		name := strings.ToLower(m.Name)
		for _, p := range pats {
			if strings.Contains(name, p) {
				excl[id] = struct{}{}
				break
			}
		}
	}
	return excl
}

// filterProblems is pure: same inputs, same output.
func filterProblems(problems []Problem, meta map[int]contestMeta, excluded map[int]struct{}, f catalogFilter) []Problem {
	out := make([]Problem, 0)
	for _, p := range problems {
		if p.ContestID == 0 || p.Index == "" || p.Rating == nil {
			continue
		}
		if _, ok := f.Ratings[*p.Rating]; !ok {
			continue
		}
		m, ok := meta[p.ContestID]
		if !ok {
			continue
		}
		if m.Year < f.YearMin || m.Year > f.YearMax {
			continue
		}
		if _, ok := excluded[p.ContestID]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}
