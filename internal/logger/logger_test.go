package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	original := log
	defer func() { log = original }()

	t.Run("Production", func(t *testing.T) {
		Init("production")
		assert.NotNil(t, log)
	})

	t.Run("Development", func(t *testing.T) {
		Init("development")
		assert.NotNil(t, log)
	})
}

func TestL(t *testing.T) {
	original := log
	defer func() { log = original }()

	log = nil
	t.Setenv("APP_ENV", "test")

	assert.NotNil(t, L())
	assert.NotNil(t, log)
}

func TestSet(t *testing.T) {
	original := log
	defer func() { log = original }()

	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))

	L().Info("order board synced", zap.Uint64("orders", 3))
	Sync()

	assert.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "order board synced", entry.Message)
	assert.Equal(t, uint64(3), entry.ContextMap()["orders"])
}
