package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sub(contestID int, index string) map[string]any {
	return map[string]any{
		"id":      contestID*100 + len(index),
		"verdict": "WRONG_ANSWER",
		"problem": map[string]any{"contestId": contestID, "index": index, "name": "x"},
	}
}

// statusServer serves user.status from a per-handle submission list and
// records every requested offset.
type statusServer struct {
	mu    sync.Mutex
	subs  map[string][]map[string]any
	froms map[string][]int
}

func (s *statusServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user.status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		handle := q.Get("handle")
		from, _ := strconv.Atoi(q.Get("from"))
		count, _ := strconv.Atoi(q.Get("count"))

		s.mu.Lock()
		s.froms[handle] = append(s.froms[handle], from)
		all, ok := s.subs[handle]
		s.mu.Unlock()
		if !ok {
			writeFailed(w, http.StatusBadRequest, "handle: User with handle "+handle+" not found")
			return
		}

		start := min(from-1, len(all))
		end := min(start+count, len(all))
		writeOK(w, all[start:end])
	}
}

func newStatusServer(t *testing.T, subs map[string][]map[string]any) (*statusServer, *apiClient) {
	t.Helper()
	s := &statusServer{subs: subs, froms: make(map[string][]int)}
	c := newTestClient(t, newAPIServer(t, s.handler(t)))
	return s, c
}

func TestLoadAttempted_PaginatesUntilShortPage(t *testing.T) {
	s, c := newStatusServer(t, map[string][]map[string]any{
		"alice": {sub(1, "A"), sub(1, "B"), sub(2, "A"), sub(2, "A"), sub(3, "C")},
	})
	var pauses []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	got, err := loadAttempted(context.Background(), c, []string{"alice"}, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 5}, s.froms["alice"])
	assert.Equal(t, []time.Duration{pagePause, pagePause}, pauses)
	assert.Len(t, got, 4)
	assert.True(t, got.has(problemKey{ContestID: 1, Index: "A"}))
	assert.True(t, got.has(problemKey{ContestID: 3, Index: "C"}))
}

func TestLoadAttempted_StopsOnEmptyPage(t *testing.T) {
	s, c := newStatusServer(t, map[string][]map[string]any{
		"bob": {sub(1, "A"), sub(1, "B")},
	})

	got, err := loadAttempted(context.Background(), c, []string{"bob"}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, s.froms["bob"])
	assert.Len(t, got, 2)
}

func TestLoadAttempted_MaxPages(t *testing.T) {
	s, c := newStatusServer(t, map[string][]map[string]any{
		"carol": {sub(1, "A"), sub(1, "B"), sub(2, "A"), sub(2, "B"), sub(3, "A")},
	})

	got, err := loadAttempted(context.Background(), c, []string{"carol"}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, s.froms["carol"])
	assert.Len(t, got, 4)
	assert.False(t, got.has(problemKey{ContestID: 3, Index: "A"}))
}

func TestLoadAttempted_UnionAcrossHandles(t *testing.T) {
	_, c := newStatusServer(t, map[string][]map[string]any{
		"alice": {sub(1, "A"), sub(2, "B")},
		"bob":   {sub(2, "B"), sub(3, "C"), {"problem": map[string]any{"index": "A"}}},
	})

	got, err := loadAttempted(context.Background(), c, []string{"alice", "bob"}, 100, 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestLoadAttempted_InvalidHandle(t *testing.T) {
	s, c := newStatusServer(t, map[string][]map[string]any{
		"alice": {sub(1, "A")},
	})

	_, err := loadAttempted(context.Background(), c, []string{"alice", "nosuchuser123", "bob"}, 100, 0)
	require.Error(t, err)

	var ih *InvalidHandleError
	require.ErrorAs(t, err, &ih)
	assert.Equal(t, "nosuchuser123", ih.Handle)
	assert.Contains(t, err.Error(), "nosuchuser123")
	assert.Len(t, s.froms["nosuchuser123"], 1)
	assert.Empty(t, s.froms["bob"])
}

func TestLoadAttempted_OtherErrorsPropagate(t *testing.T) {
	host := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeFailed(w, http.StatusBadRequest, "count: Field should be no more than 10000")
	})
	c := newTestClient(t, host)

	_, err := loadAttempted(context.Background(), c, []string{"alice"}, 100, 0)
	require.Error(t, err)

	var ih *InvalidHandleError
	assert.False(t, errors.As(err, &ih))
	var fe *FetchError
	assert.ErrorAs(t, err, &fe)
}

func TestInvalidHandleComment(t *testing.T) {
	comment, ok := invalidHandleComment(&FetchError{Path: "user.status", Err: &apiStatusError{Comment: "handles: User with handle x not found"}})
	assert.True(t, ok)
	assert.Equal(t, "handles: User with handle x not found", comment)

	_, ok = invalidHandleComment(&FetchError{Path: "user.status", Err: errNonJSON})
	assert.False(t, ok)

	_, ok = invalidHandleComment(&FetchError{Path: "user.status", Err: &apiStatusError{Comment: "handle: Field should contain only Latin letters, digits, underscore or dash characters"}})
	assert.False(t, ok)
}
