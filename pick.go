package main

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"
)

// pickConstraints controls diversity across the picked set.
type pickConstraints struct {
	DistinctContest bool
	DistinctTags    bool           // cap of 1 on every tag
	TagCaps         map[string]int // lowercase tag -> max picks carrying it
	Seed            *int64
}

func newPickConstraints(cfg appConfig) pickConstraints {
	return pickConstraints{
		DistinctContest: cfg.DistinctContest,
		DistinctTags:    cfg.DistinctTags,
		TagCaps:         cfg.TagCaps,
		Seed:            cfg.Seed,
	}
}

// SelectionError reports a rating no remaining candidate could fill.
type SelectionError struct {
	Rating      int
	Constraints []string
}

func (e *SelectionError) Error() string {
	active := "none"
	if len(e.Constraints) > 0 {
		active = strings.Join(e.Constraints, ", ")
	}
	return fmt.Sprintf("no available problem for rating %d under constraints: %s", e.Rating, active)
}

// pickStrictOrder picks one unattempted problem per entry of ratings, in
// order. Each rating's bucket is shuffled once and consumed greedily from
// the end; rejected candidates are discarded. There is no backtracking
// across ratings, so some satisfiable inputs can still fail depending on
// shuffle order.
func pickStrictOrder(candidates []Problem, attempted attemptedSet, ratings []int, pc pickConstraints) ([]Problem, error) {
	rng := newRand(pc.Seed)
	caps := normalizeCaps(pc.TagCaps)

	buckets := make(map[int][]Problem)
	for _, p := range candidates {
		if p.Rating == nil || attempted.has(p.key()) {
			continue
		}
		buckets[*p.Rating] = append(buckets[*p.Rating], p)
	}
	// Shuffle in a fixed rating order so a seed reproduces the same picks.
	keys := make([]int, 0, len(buckets))
	for r := range buckets {
		keys = append(keys, r)
	}
	slices.Sort(keys)
	for _, r := range keys {
		b := buckets[r]
		rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	}

	st := pickState{
		usedKeys:     make(map[problemKey]struct{}),
		usedContests: make(map[int]struct{}),
		tagCounts:    make(map[string]int),
	}
	picked := make([]Problem, 0, len(ratings))
	for _, r := range ratings {
		pool := buckets[r]
		var chosen *Problem
		for len(pool) > 0 {
			cand := pool[len(pool)-1]
			pool = pool[:len(pool)-1]
			tags := lowerTags(cand.Tags)
			if !st.allows(cand, tags, pc, caps) {
				continue
			}
			st.accept(cand, tags, pc)
			chosen = &cand
			break
		}
		buckets[r] = pool
		if chosen == nil {
			return nil, &SelectionError{Rating: r, Constraints: describeConstraints(pc, caps)}
		}
		picked = append(picked, *chosen)
	}
	return picked, nil
}

type pickState struct {
	usedKeys     map[problemKey]struct{}
	usedContests map[int]struct{}
	tagCounts    map[string]int
}

func (st *pickState) allows(p Problem, tags []string, pc pickConstraints, caps map[string]int) bool {
	if _, ok := st.usedKeys[p.key()]; ok {
		return false
	}
	if pc.DistinctContest {
		if _, ok := st.usedContests[p.ContestID]; ok {
			return false
		}
	}
	for _, t := range tags {
		n := st.tagCounts[t]
		if pc.DistinctTags && n >= 1 {
			return false
		}
		if c, ok := caps[t]; ok && n >= c {
			return false
		}
	}
	return true
}

func (st *pickState) accept(p Problem, tags []string, pc pickConstraints) {
	st.usedKeys[p.key()] = struct{}{}
	if pc.DistinctContest {
		st.usedContests[p.ContestID] = struct{}{}
	}
	for _, t := range tags {
		st.tagCounts[t]++
	}
}

func newRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// normalizeCaps lowercases keys and drops caps below 1.
func normalizeCaps(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for t, c := range in {
		if c >= 1 {
			out[strings.ToLower(t)] = c
		}
	}
	return out
}

// lowerTags returns the distinct lowercase tags of a problem.
func lowerTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(t)
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func describeConstraints(pc pickConstraints, caps map[string]int) []string {
	var out []string
	if pc.DistinctContest {
		out = append(out, "distinct contest")
	}
	if pc.DistinctTags {
		out = append(out, "no tag repetition")
	}
	if len(caps) > 0 {
		tags := make([]string, 0, len(caps))
		for t := range caps {
			tags = append(tags, t)
		}
		slices.Sort(tags)
		parts := make([]string, 0, len(tags))
		for _, t := range tags {
			parts = append(parts, fmt.Sprintf("%s: %d", t, caps[t]))
		}
		out = append(out, "tag caps={"+strings.Join(parts, ", ")+"}")
	}
	return out
}
