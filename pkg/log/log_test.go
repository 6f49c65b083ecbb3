package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Child loggers are returned by value, so callers bind them to a local
// before emitting events.
func TestChildLoggersCarryTheirField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	logger := WithComponent("store")
	logger.Info().Msg("record created")
	assert.Contains(t, buf.String(), `"component":"store"`)
	assert.Contains(t, buf.String(), `"record created"`)

	buf.Reset()
	jobLogger := WithJobID("7b0a")
	jobLogger.Warn().Msg("slow run")
	assert.Contains(t, buf.String(), `"job_id":"7b0a"`)

	buf.Reset()
	dsLogger := WithDataset("census")
	dsLogger.Error().Msg("missing tree")
	assert.Contains(t, buf.String(), `"dataset":"census"`)
}

func TestInitHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	logger := WithComponent("rpc")
	logger.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), `"kept"`)
}
