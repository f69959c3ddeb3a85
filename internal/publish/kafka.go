package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"pump-sniper/internal/domain"
)

// DefaultTopic receives built buy transactions.
const DefaultTopic = "pump-sniper.buys"

// Message is the JSON value of a published transaction.
type Message struct {
	AttemptID         string `json:"attempt_id"`
	SessionID         string `json:"session_id"`
	Mint              string `json:"mint"`
	Signature         string `json:"signature"`
	AmountIn          uint64 `json:"amount_in"`
	MinTokensOut      uint64 `json:"min_tokens_out"`
	SimulationOK      bool   `json:"simulation_ok"`
	Transaction       string `json:"transaction"` // base64 wire format
	BuiltAt           int64  `json:"built_at"`
	BuyerTokenAccount string `json:"buyer_token_account"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes one message per transaction, keyed by mint.
type Kafka struct {
	writer messageWriter
	topic  string
}

// NewKafka creates a synchronous publisher for topic.
func NewKafka(brokers []string, topic string) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    1,
		},
		topic: topic,
	}
}

// Topic returns the destination topic.
func (k *Kafka) Topic() string {
	return k.topic
}

// Publish implements Publisher.
func (k *Kafka) Publish(ctx context.Context, attempt *domain.BuyAttempt, tx []byte) error {
	if attempt == nil || len(tx) == 0 {
		return errors.New("nothing to publish")
	}

	msg := Message{
		AttemptID:         attempt.AttemptID,
		SessionID:         attempt.SessionID,
		Mint:              attempt.Mint,
		AmountIn:          attempt.AmountIn,
		MinTokensOut:      attempt.MinTokensOut,
		SimulationOK:      attempt.SimulationOK,
		Transaction:       base64.StdEncoding.EncodeToString(tx),
		BuiltAt:           attempt.BuiltAt,
		BuyerTokenAccount: attempt.BuyerTokenAccount,
	}
	if attempt.TxSignature != nil {
		msg.Signature = *attempt.TxSignature
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal buy message: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(attempt.Mint),
		Value: value,
		Time:  time.UnixMilli(attempt.BuiltAt),
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka topic %q: %w", k.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
