package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kleinwatch/dealwatcher/internal/fetcher"
	werrors "kleinwatch/dealwatcher/pkg/errors"
)

func TestNtfyEndpoint(t *testing.T) {
	assert.Equal(t, "https://ntfy.example.com/deals", NtfyConfig{URL: "https://ntfy.example.com/deals"}.Endpoint())
	assert.Equal(t, "https://ntfy.sh/deals", NtfyConfig{Topic: "deals"}.Endpoint())
}

func TestNtfyNotify(t *testing.T) {
	type push struct {
		title string
		body  string
	}

	var (
		mu     sync.Mutex
		pushes []push
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		pushes = append(pushes, push{title: r.Header.Get("Title"), body: string(body)})
		mu.Unlock()
	}))
	defer server.Close()

	ch := NewNtfyChannel(NtfyConfig{URL: server.URL, Timeout: 5 * time.Second})
	listings := []fetcher.Listing{
		{Title: "Ryzen 9 5900X", Price: ptr(250), URL: "https://l/1"},
		{Title: "Ryzen 5900X", Price: nil, URL: "https://l/2"},
	}

	err := ch.Notify(context.Background(), listings)
	require.NoError(t, err)

	require.Len(t, pushes, 2)
	assert.Equal(t, "250 ? Ryzen 9 5900X", pushes[0].title)
	assert.Equal(t, "https://l/1", pushes[0].body)
	assert.Equal(t, "? ? Ryzen 5900X", pushes[1].title)
}

func TestNtfyNotifyPartialFailure(t *testing.T) {
	var count int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		if count == 1 {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	ch := NewNtfyChannel(NtfyConfig{URL: server.URL, Timeout: 5 * time.Second})
	listings := []fetcher.Listing{
		{Title: "a", URL: "https://l/1"},
		{Title: "b", URL: "https://l/2"},
	}

	err := ch.Notify(context.Background(), listings)
	require.Error(t, err)
	assert.Equal(t, werrors.KindNotify, werrors.KindOf(err))

	// the second listing was still attempted
	assert.Equal(t, 2, count)
}
