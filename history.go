package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// pagePause is the courtesy pause between pages of one handle.
const pagePause = 200 * time.Millisecond

// InvalidHandleError reports a handle the API does not know.
type InvalidHandleError struct {
	Handle  string
	Comment string
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("handle '%s' is invalid: %s", e.Handle, e.Comment)
}

type submission struct {
	Problem struct {
		ContestID int    `json:"contestId"`
		Index     string `json:"index"`
	} `json:"problem"`
}

// attemptedSet holds every problem with at least one submission.
type attemptedSet map[problemKey]struct{}

func (s attemptedSet) has(k problemKey) bool {
	_, ok := s[k]
	return ok
}

// loadAttempted pages through user.status for every handle and collects
// the problems each has submitted to, regardless of verdict. maxPages <= 0
// means no cap.
func loadAttempted(ctx context.Context, c *apiClient, handles []string, pageSize, maxPages int) (attemptedSet, error) {
	attempted := make(attemptedSet)
	for _, h := range handles {
		n, err := loadHandle(ctx, c, h, pageSize, maxPages, attempted)
		if err != nil {
			return nil, err
		}
		c.log.infof("user.status: %s: %d submissions", h, n)
	}
	return attempted, nil
}

func loadHandle(ctx context.Context, c *apiClient, handle string, pageSize, maxPages int, into attemptedSet) (int, error) {
	total := 0
	from := 1
	for page := 1; ; page++ {
		c.log.debugf("user.status: %s page=%d from=%d", handle, page, from)

		params := url.Values{
			"handle": {handle},
			"from":   {strconv.Itoa(from)},
			"count":  {strconv.Itoa(pageSize)},
		}
		var batch []submission
		if err := c.call(ctx, "user.status", params, &batch); err != nil {
			if comment, ok := invalidHandleComment(err); ok {
				return total, &InvalidHandleError{Handle: handle, Comment: comment}
			}
			return total, err
		}
		if len(batch) == 0 {
			break
		}
		for _, s := range batch {
			if s.Problem.ContestID == 0 || s.Problem.Index == "" {
				continue
			}
			into[problemKey{ContestID: s.Problem.ContestID, Index: s.Problem.Index}] = struct{}{}
		}
		total += len(batch)

		if len(batch) < pageSize {
			break
		}
		if maxPages > 0 && page >= maxPages {
			c.log.debugf("user.status: %s reached max_pages_per_user=%d", handle, maxPages)
			break
		}
		from += pageSize
		if err := c.sleep(ctx, pagePause); err != nil {
			return total, err
		}
	}
	return total, nil
}

// invalidHandleComment extracts the API comment when err says the handle
// does not exist.
func invalidHandleComment(err error) (string, bool) {
	var se *apiStatusError
	if !errors.As(err, &se) {
		return "", false
	}
	lc := strings.ToLower(se.Comment)
	if strings.Contains(lc, "not found") || strings.Contains(lc, "handles:") {
		return se.Comment, true
	}
	return "", false
}
