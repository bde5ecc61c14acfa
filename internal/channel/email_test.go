package channel

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowarn/geowarn/internal/alert"
)

func testAlert(sev alert.Severity) alert.Alert {
	return alert.Alert{
		ID:        "a-42",
		SiteID:    "pit-1",
		Severity:  sev,
		Title:     "Rockfall risk detected",
		Message:   "Sensor cluster 4 reports movement",
		CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestEmailAdapter_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	e := NewEmailAdapter("smtp.example.com", 587, "user", "pass", "alerts@example.com", 10)
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	msg := Render(testAlert(alert.SeverityHigh))
	require.NoError(t, e.Send(context.Background(), "operator@example.com", msg))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "alerts@example.com", gotFrom)
	assert.Equal(t, []string{"operator@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: [HIGH ALERT] Rockfall risk detected")
	assert.Contains(t, string(gotMsg), "X-Priority: 1")
	assert.Contains(t, string(gotMsg), "pit-1")
}

func TestEmailAdapter_NormalPriorityOmitsHeaders(t *testing.T) {
	var gotMsg []byte

	e := NewEmailAdapter("smtp.example.com", 587, "", "", "alerts@example.com", 10)
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	msg := Render(testAlert(alert.SeverityLow))
	require.NoError(t, e.Send(context.Background(), "operator@example.com", msg))
	assert.NotContains(t, string(gotMsg), "X-Priority")
}

func TestEmailAdapter_TransportFailure(t *testing.T) {
	e := NewEmailAdapter("smtp.example.com", 587, "", "", "alerts@example.com", 10)
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	err := e.Send(context.Background(), "operator@example.com", Message{Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEmailAdapter_RateLimited(t *testing.T) {
	e := NewEmailAdapter("smtp.example.com", 587, "", "", "alerts@example.com", 1)
	e.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return nil
	}

	require.NoError(t, e.Send(context.Background(), "a@example.com", Message{}))
	err := e.Send(context.Background(), "b@example.com", Message{})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestEmailAdapter_Validate(t *testing.T) {
	assert.Error(t, NewEmailAdapter("", 587, "", "", "f@x.com", 10).Validate())
	assert.Error(t, NewEmailAdapter("smtp.example.com", 0, "", "", "f@x.com", 10).Validate())
	assert.Error(t, NewEmailAdapter("smtp.example.com", 587, "", "", "", 10).Validate())
	assert.NoError(t, NewEmailAdapter("smtp.example.com", 587, "", "", "f@x.com", 10).Validate())
}
