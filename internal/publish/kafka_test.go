package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sniper/internal/domain"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testAttempt() *domain.BuyAttempt {
	sig := "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
	return &domain.BuyAttempt{
		AttemptID:    "attempt-1",
		SessionID:    "session-1",
		Mint:         "mintA",
		Status:       domain.BuyAttemptBuilt,
		TxSignature:  &sig,
		AmountIn:     1_000_000_000,
		MinTokensOut: 32_882_258_064_516,
		SimulationOK: true,
		BuiltAt:      1700000000000,
	}
}

func TestKafka_Publish(t *testing.T) {
	w := &recordingWriter{}
	k := &Kafka{writer: w, topic: DefaultTopic}

	tx := []byte{1, 2, 3, 4}
	require.NoError(t, k.Publish(context.Background(), testAttempt(), tx))
	require.Len(t, w.msgs, 1)

	m := w.msgs[0]
	assert.Equal(t, "mintA", string(m.Key))
	assert.Equal(t, time.UnixMilli(1700000000000), m.Time)

	var got Message
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, "attempt-1", got.AttemptID)
	assert.Equal(t, *testAttempt().TxSignature, got.Signature)
	assert.Equal(t, uint64(32_882_258_064_516), got.MinTokensOut)
	assert.True(t, got.SimulationOK)

	raw, err := base64.StdEncoding.DecodeString(got.Transaction)
	require.NoError(t, err)
	assert.Equal(t, tx, raw)
}

func TestKafka_PublishErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker unavailable")}
	k := &Kafka{writer: w, topic: DefaultTopic}

	err := k.Publish(context.Background(), testAttempt(), []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")

	assert.Error(t, k.Publish(context.Background(), nil, []byte{1}))
	assert.Error(t, k.Publish(context.Background(), testAttempt(), nil))
}

func TestKafka_Close(t *testing.T) {
	w := &recordingWriter{}
	k := &Kafka{writer: w, topic: DefaultTopic}
	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestNewKafka_DefaultTopic(t *testing.T) {
	k := NewKafka([]string{"localhost:9092"}, "")
	assert.Equal(t, DefaultTopic, k.Topic())
	assert.NoError(t, Noop{}.Publish(context.Background(), testAttempt(), []byte{1}))
}
