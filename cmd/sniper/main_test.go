package main

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sniper/internal/config"
	"pump-sniper/internal/publish"
	"pump-sniper/internal/storage/memory"
)

func TestOpenJournal_Memory(t *testing.T) {
	journal, closeJournal, err := openJournal(context.Background(), &config.Config{}, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	defer closeJournal()

	assert.IsType(t, &memory.TokenStore{}, journal.Tokens)
	assert.IsType(t, &memory.CurveObservationStore{}, journal.Observations)
}

func TestNewOracle_InvalidRedisURL(t *testing.T) {
	_, err := newOracle(&config.Config{RedisURL: "://bad"}, logrus.New())
	assert.Error(t, err)
}

func TestNewPublisher(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	assert.IsType(t, publish.Noop{}, newPublisher(&config.Config{}, log))

	p := newPublisher(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, log)
	defer p.Close()
	assert.IsType(t, &publish.Kafka{}, p)
}

func TestApplyFlag(t *testing.T) {
	v := "env"
	applyFlag(&v, "")
	assert.Equal(t, "env", v)
	applyFlag(&v, "flag")
	assert.Equal(t, "flag", v)
}
