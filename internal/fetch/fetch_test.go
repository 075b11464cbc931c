package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

func testRotation(t *testing.T) *Rotation {
	t.Helper()
	r, err := NewRotation([]string{"ua-1", "ua-2"}, nil, "", 3)
	require.NoError(t, err)
	return r
}

func testController(t *testing.T, rot *Rotation) *Controller {
	t.Helper()
	return NewController(rot, Options{
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
		MinBytes:   10,
	}, slog.Default())
}

func pageBody(extra string) string {
	return "<html><body><table><tr><td>lokaler Versorger</td><td>0,38 Euro pro kWh</td></tr></table>" +
		extra + strings.Repeat(" ", 64) + "</body></html>"
}

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(pageBody("")))
	}))
	defer srv.Close()

	rot := testRotation(t)
	c := testController(t, rot)

	result, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, models.FetchOK, result.Status)
	assert.Equal(t, 1, result.Attempts)
	require.NotNil(t, result.Document)
	assert.Contains(t, result.RawText, "lokaler Versorger")
}

func TestFetchNotFoundIsTerminal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := testController(t, testRotation(t))

	result, err := c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, models.FetchNotFound, result.Status)
	assert.Equal(t, 1, calls, "not-found must not be retried")
}

func TestFetchBlockedExhaustsRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(pageBody("please solve this captcha to continue")))
	}))
	defer srv.Close()

	c := testController(t, testRotation(t))

	result, err := c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBlockedExhausted)
	assert.Equal(t, models.FetchBlocked, result.Status)
	assert.Equal(t, 3, calls)
}

func TestFetchShortBodyIsBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	c := testController(t, testRotation(t))

	_, err := c.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBlockedExhausted)
}

func TestFetchRecoversAfterTransientBlock(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(pageBody("")))
			return
		}
		w.Write([]byte(pageBody("")))
	}))
	defer srv.Close()

	c := testController(t, testRotation(t))

	result, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, models.FetchOK, result.Status)
	assert.Equal(t, 2, result.Attempts)
}

func TestFetchCancelledBetweenRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageBody("captcha")))
	}))
	defer srv.Close()

	rot := testRotation(t)
	c := NewController(rot, Options{
		Timeout:    time.Second,
		MaxRetries: 3,
		RetryBase:  time.Hour, // cancellation must cut the backoff short
		MinBytes:   10,
	}, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRotationEmptyPool(t *testing.T) {
	_, err := NewRotation(nil, nil, "", 3)
	assert.ErrorIs(t, err, ErrNoRotationEntries)
}

func TestRotationAvoidsRepeat(t *testing.T) {
	r, err := NewRotation([]string{"ua-1", "ua-2", "ua-3"}, nil, "", 3)
	require.NoError(t, err)

	prev := r.Next()
	for i := 0; i < 20; i++ {
		next := r.Next()
		assert.NotEqual(t, prev.UserAgent, next.UserAgent)
		prev = next
	}
}

func TestRotationExclusionAndReset(t *testing.T) {
	r, err := NewRotation([]string{"ua-1", "ua-2"}, nil, "", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Size())

	bad := Entry{UserAgent: "ua-1"}
	r.RecordFailure(bad)
	r.RecordFailure(bad)
	assert.Equal(t, 1, r.EligibleCount())

	// Only ua-2 remains in rotation.
	for i := 0; i < 10; i++ {
		assert.Equal(t, "ua-2", r.Next().UserAgent)
	}

	// Excluding the last entry triggers the global reset.
	other := Entry{UserAgent: "ua-2"}
	r.RecordFailure(other)
	r.RecordFailure(other)
	assert.Equal(t, 0, r.EligibleCount())

	r.Next()
	assert.Equal(t, 2, r.EligibleCount())
}

func TestRotationSuccessClearsFailures(t *testing.T) {
	r, err := NewRotation([]string{"ua-1"}, nil, "", 2)
	require.NoError(t, err)

	e := Entry{UserAgent: "ua-1"}
	r.RecordFailure(e)
	r.RecordSuccess(e)
	r.RecordFailure(e)
	assert.Equal(t, 1, r.EligibleCount())
}

func TestRotationProxyEntries(t *testing.T) {
	r, err := NewRotation([]string{"ua-1"}, []string{"http://proxy:8080"}, "socks5://127.0.0.1:9050", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Size())

	kinds := map[ProxyKind]bool{}
	for i := 0; i < 50; i++ {
		kinds[r.Next().Kind] = true
	}
	assert.True(t, kinds[ProxyDirect])
	assert.True(t, kinds[ProxyForward])
	assert.True(t, kinds[ProxyOnion])
}
