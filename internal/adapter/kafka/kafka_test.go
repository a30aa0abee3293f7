package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var generatedAt = time.Date(2025, 4, 26, 11, 30, 0, 0, time.UTC)

func testDelivery() domain.Delivery {
	alerts := []domain.Alert{{State: "MS", Title: "Flood Warning MS", What: "Flooding.", Where: "Hinds County"}}
	orders := []domain.Order{
		{JobID: "J-1", County: "Hinds", Client: "Acme"},
		{JobID: "J-2", County: "Cook", Client: "Acme"},
		{JobID: "J-3", County: "hinds", Client: "Beta"},
	}
	matched := domain.JoinOrders(orders, alerts)
	return domain.Delivery{
		Report:       domain.BuildReport(alerts, matched, generatedAt),
		Path:         "/reports/Weather_Delayed_Orders_04-26-25.xlsx",
		AlertCount:   len(alerts),
		MatchedCount: len(matched),
		Matched:      matched,
	}
}

func TestSerializeToMessage(t *testing.T) {
	d := testDelivery()

	msg, err := serializeToMessage(d, d.Matched[0])
	require.NoError(t, err)

	assert.Equal(t, []byte("J-1"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "client", msg.Headers[0].Key)
	assert.Equal(t, []byte("Acme"), msg.Headers[0].Value)
	assert.Equal(t, "alert_title", msg.Headers[1].Key)
	assert.Equal(t, []byte("Flood Warning MS"), msg.Headers[1].Value)
	assert.Equal(t, "report", msg.Headers[2].Key)
	assert.Equal(t, []byte("Weather_Delayed_Orders_04-26-25"), msg.Headers[2].Value)

	var notice OrderNotice
	require.NoError(t, json.Unmarshal(msg.Value, &notice))
	assert.Equal(t, "J-1", notice.JobID)
	assert.Equal(t, "Hinds County", notice.Alert.Where)
	assert.Equal(t, "Flooding.", notice.Alert.What)
	assert.Equal(t, d.Path, notice.ReportPath)
	assert.True(t, generatedAt.Equal(notice.GeneratedAt))
	assert.Contains(t, string(msg.Value), `"job_id":"J-1"`)
}

func TestNotifier_Notify(t *testing.T) {
	fw := &fakeWriter{}
	n := &Notifier{writer: fw, logger: discardLogger()}

	require.NoError(t, n.Notify(context.Background(), testDelivery()))

	assert.Equal(t, "kafka", n.Name())
	require.Len(t, fw.msgs, 2)
	assert.Equal(t, []byte("J-1"), fw.msgs[0].Key)
	assert.Equal(t, []byte("J-3"), fw.msgs[1].Key)

	require.NoError(t, n.Close())
	assert.True(t, fw.closed)
}

func TestNotifier_NoMatchesPublishesNothing(t *testing.T) {
	fw := &fakeWriter{err: errors.New("must not be called")}
	n := &Notifier{writer: fw, logger: discardLogger()}

	require.NoError(t, n.Notify(context.Background(), domain.Delivery{}))
	assert.Empty(t, fw.msgs)
}

func TestNotifier_WriteError(t *testing.T) {
	n := &Notifier{writer: &fakeWriter{err: errors.New("leader not available")}, logger: discardLogger()}

	err := n.Notify(context.Background(), testDelivery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish order notices")
}
