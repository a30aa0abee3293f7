package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDelivery(t *testing.T) domain.Delivery {
	t.Helper()
	alerts := []domain.Alert{{State: "MS", Title: "Flood Warning MS", Where: "Hinds County"}}
	orders := []domain.Order{
		{JobID: "J-1", County: "Hinds", Client: "Acme"},
		{JobID: "J-2", County: "Hinds", Client: "Acme"},
		{JobID: "J-3", County: "Hinds", Client: "Beta"},
	}
	matched := domain.JoinOrders(orders, alerts)
	report := domain.BuildReport(alerts, matched, time.Date(2025, 4, 26, 11, 30, 0, 0, time.UTC))

	path := filepath.Join(t.TempDir(), report.Name+".xlsx")
	require.NoError(t, os.WriteFile(path, []byte("PK-fake-workbook"), 0o600))

	return domain.Delivery{Report: report, Path: path, AlertCount: 1, MatchedCount: len(matched)}
}

type sent struct {
	from string
	to   []string
	msg  []byte
}

func TestNotifier_Notify(t *testing.T) {
	var got sent
	n := NewNotifier(Config{From: "ops@example.com", To: []string{"a@example.com", "b@example.com"}}, discardLogger())
	n.send = func(_ context.Context, from string, to []string, msg []byte) error {
		got = sent{from: from, to: to, msg: msg}
		return nil
	}

	d := testDelivery(t)
	require.NoError(t, n.Notify(context.Background(), d))
	assert.Equal(t, "email", n.Name())
	assert.Equal(t, "ops@example.com", got.from)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got.to)

	mr, err := mail.CreateReader(strings.NewReader(string(got.msg)))
	require.NoError(t, err)
	defer mr.Close()

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Weather Delayed Orders - 04/26/2025 - 3 Order(s) Found", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "b@example.com", to[1].Address)

	var body, filename string
	var attachment []byte
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		data, err := io.ReadAll(p.Body)
		require.NoError(t, err)

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			body = string(data)
		case *mail.AttachmentHeader:
			filename, _ = h.Filename()
			attachment = data
		}
	}

	assert.Contains(t, body, "Active alerts: 1")
	assert.Contains(t, body, "Matched orders: 3")
	assert.Contains(t, body, "  Acme: 2\n")
	assert.Contains(t, body, "  Beta: 1\n")
	assert.Equal(t, "Weather_Delayed_Orders_04-26-25.xlsx", filename)
	assert.Equal(t, "PK-fake-workbook", string(attachment))
}

func TestBody_NoMatches(t *testing.T) {
	d := domain.Delivery{
		Report: domain.BuildReport(nil, nil, time.Date(2025, 4, 26, 0, 0, 0, 0, time.UTC)),
		Path:   "/reports/r.xlsx",
	}
	body := Body(d)
	assert.Contains(t, body, "No orders are in a county under an active alert.")
	assert.Contains(t, body, "(r.xlsx)")
	assert.Equal(t, "Weather Delayed Orders - 04/26/2025 - 0 Order(s) Found", Subject(d))
}

func TestNotifier_Errors(t *testing.T) {
	t.Run("no recipients", func(t *testing.T) {
		n := NewNotifier(Config{From: "ops@example.com"}, discardLogger())
		require.Error(t, n.Notify(context.Background(), testDelivery(t)))
	})

	t.Run("missing report file", func(t *testing.T) {
		n := NewNotifier(Config{From: "ops@example.com", To: []string{"a@example.com"}}, discardLogger())
		n.send = func(context.Context, string, []string, []byte) error {
			t.Fatal("send must not be called")
			return nil
		}
		d := testDelivery(t)
		d.Path = filepath.Join(t.TempDir(), "gone.xlsx")
		err := n.Notify(context.Background(), d)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("send failure is wrapped", func(t *testing.T) {
		n := NewNotifier(Config{From: "ops@example.com", To: []string{"a@example.com"}}, discardLogger())
		n.send = func(context.Context, string, []string, []byte) error {
			return errors.New("535 auth failed")
		}
		err := n.Notify(context.Background(), testDelivery(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "send mail: 535 auth failed")
	})
}

func TestNotifier_SendSMTP_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	n := NewNotifier(Config{
		Host: "127.0.0.1", Port: addr.Port,
		From: "ops@example.com", To: []string{"a@example.com"},
		DialTimeout: time.Second,
	}, discardLogger())

	err = n.Notify(context.Background(), testDelivery(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial 127.0.0.1:")
}
