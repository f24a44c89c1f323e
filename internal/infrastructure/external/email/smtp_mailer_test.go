package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "bot",
		Password: "secret",
		From:     "approvals@example.com",
		FromName: "Approvals",
	}
}

func TestSMTPMailer_IsConfigured(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{name: "complete", config: testConfig(), want: true},
		{name: "no host", config: Config{Port: "25", From: "a@example.com"}, want: false},
		{name: "no port", config: Config{Host: "h", From: "a@example.com"}, want: false},
		{name: "no from", config: Config{Host: "h", Port: "25"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSMTPMailer(tt.config, zap.NewNop()).IsConfigured())
		})
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(testConfig(), zap.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := m.Send(context.Background(), []string{"kim@example.com", "lee@example.com"}, "[Approval] Approved: Trip", "line one\nline two")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "approvals@example.com", gotFrom)
	assert.Equal(t, []string{"kim@example.com", "lee@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "To: kim@example.com, lee@example.com\r\n")
	assert.Contains(t, msg, "From: Approvals <approvals@example.com>\r\n")
	assert.Contains(t, msg, "Subject: [Approval] Approved: Trip\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline one\r\nline two"))
}

func TestSMTPMailer_SendEncodesNonASCIISubject(t *testing.T) {
	m := NewSMTPMailer(testConfig(), zap.NewNop())
	var gotMsg []byte
	m.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), []string{"kim@example.com"}, "휴가 승인", "body"))
	assert.Contains(t, string(gotMsg), "Subject: =?utf-8?q?")
}

func TestSMTPMailer_SendErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		m := NewSMTPMailer(Config{}, zap.NewNop())
		err := m.Send(context.Background(), []string{"kim@example.com"}, "s", "b")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("no recipients is a no-op", func(t *testing.T) {
		m := NewSMTPMailer(testConfig(), zap.NewNop())
		m.send = func(string, smtp.Auth, string, []string, []byte) error {
			t.Fatal("send should not be called")
			return nil
		}
		assert.NoError(t, m.Send(context.Background(), nil, "s", "b"))
	})

	t.Run("transport failure is wrapped", func(t *testing.T) {
		m := NewSMTPMailer(testConfig(), zap.NewNop())
		boom := errors.New("connection refused")
		m.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }
		err := m.Send(context.Background(), []string{"kim@example.com"}, "s", "b")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		m := NewSMTPMailer(testConfig(), zap.NewNop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, m.Send(ctx, []string{"kim@example.com"}, "s", "b"), context.Canceled)
	})
}
