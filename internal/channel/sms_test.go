package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowarn/geowarn/internal/alert"
)

func TestSMSAdapter_Send(t *testing.T) {
	var received map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSMSAdapter(server.URL, "test-key", "+10000000000", 10)
	msg := Render(alert.Alert{
		ID:        "a-1",
		SiteID:    "pit-7",
		Severity:  alert.SeverityHigh,
		Title:     "Rockfall risk",
		CreatedAt: time.Now(),
	})

	require.NoError(t, s.Send(context.Background(), "+15550001111", msg))
	assert.Equal(t, "+15550001111", received["to"])
	assert.Equal(t, "+10000000000", received["from"])
	assert.Contains(t, received["body"], "HIGH ALERT")
	assert.Contains(t, received["body"], "pit-7")
}

func TestSMSAdapter_GatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := NewSMSAdapter(server.URL, "", "+10000000000", 10)
	err := s.Send(context.Background(), "+15550001111", Message{Short: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSMSAdapter_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSMSAdapter(server.URL, "", "+10000000000", 1)
	require.NoError(t, s.Send(context.Background(), "+1555", Message{Short: "one"}))

	err := s.Send(context.Background(), "+1555", Message{Short: "two"})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestTruncateSMS(t *testing.T) {
	short := "short message"
	assert.Equal(t, short, truncateSMS(short))

	long := strings.Repeat("x", 200)
	got := truncateSMS(long)
	assert.Len(t, []rune(got), smsMaxLen)
	assert.True(t, strings.HasSuffix(got, "..."))

	exact := strings.Repeat("y", smsMaxLen)
	assert.Equal(t, exact, truncateSMS(exact))
}

func TestSMSAdapter_Validate(t *testing.T) {
	assert.Error(t, NewSMSAdapter("", "", "+1", 10).Validate())
	assert.Error(t, NewSMSAdapter("https://gw.example.com", "", "", 10).Validate())
	assert.NoError(t, NewSMSAdapter("https://gw.example.com", "", "+1", 10).Validate())
}
