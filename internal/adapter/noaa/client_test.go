package noaa

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_FetchEntries(t *testing.T) {
	body, err := os.ReadFile("testdata/active.atom")
	require.NoError(t, err)

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, "delays-test (ops@example.com)", discardLogger())
	entries, err := c.FetchEntries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "delays-test (ops@example.com)", gotUA)
	require.Len(t, entries, 3)
	assert.Equal(t, "Flood Warning issued April 26 at 8:15AM CDT by NWS Jackson MS", entries[0].Title)
	assert.Equal(t, "2025-04-26T08:15:00-05:00", entries[0].Updated)
	assert.Contains(t, entries[0].Summary, "* WHERE...Hinds and Rankin Counties.")
	assert.Equal(t, "Red Flag Warning issued April 26 at 6:40AM MST by NWS Tucson AZ", entries[2].Title)
}

func TestClient_FetchEntries_ParsesIntoAlerts(t *testing.T) {
	body, err := os.ReadFile("testdata/active.atom")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	rules, err := domain.NewRules(domain.DefaultMonitoredStates, domain.DefaultExclusionTerms)
	require.NoError(t, err)

	entries, err := NewClient(srv.URL, 5*time.Second, "", discardLogger()).FetchEntries(context.Background())
	require.NoError(t, err)

	alerts := make([]domain.Alert, 0, len(entries))
	for _, e := range entries {
		alerts = append(alerts, domain.ParseEntry(e, rules))
	}
	kept := domain.FilterAlerts(alerts, rules)

	require.Len(t, kept, 1)
	assert.Equal(t, "MS", kept[0].State)
	assert.Equal(t, "...Hinds and Rankin Counties.", kept[0].Where)
}

func TestClient_FetchEntries_DefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer srv.Close()

	entries, err := NewClient(srv.URL, time.Second, "", discardLogger()).FetchEntries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "storm-alert-delays", gotUA)
}

func TestClient_FetchEntries_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, "", discardLogger()).FetchEntries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestClient_FetchEntries_MalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<feed><entry><title>broken"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, "", discardLogger()).FetchEntries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feed")
}

func TestClient_FetchEntries_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<feed></feed>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL, time.Second, "", discardLogger()).FetchEntries(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
