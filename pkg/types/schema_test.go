package types

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceUUID(t *testing.T) {
	id := uuid.New()

	got, ok := UUIDField().Coerce(id.String())
	require.True(t, ok)
	assert.Equal(t, id, got)

	// 32-char hex form without dashes is accepted too.
	hex := strings.ReplaceAll(id.String(), "-", "")
	got, ok = UUIDField().Coerce(hex)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = UUIDField().Coerce("not-a-uuid")
	assert.False(t, ok)
}

func TestCoerceInstant(t *testing.T) {
	got, ok := InstantField().Coerce("2026-08-24T10:30:00Z")
	require.True(t, ok)
	ts, isTime := got.(time.Time)
	require.True(t, isTime)
	assert.Equal(t, 2026, ts.Year())

	got, ok = InstantField().Coerce("2026-08-24")
	require.True(t, ok)
	_, isTime = got.(time.Time)
	assert.True(t, isTime)

	_, ok = InstantField().Coerce("yesterday")
	assert.False(t, ok)
}

func TestCoerceEnum(t *testing.T) {
	f := EnumField(func(v string) (any, error) { return ParseJobStatus(v) })

	got, ok := f.Coerce("approved")
	require.True(t, ok)
	assert.Equal(t, JobStatusApproved, got)

	_, ok = f.Coerce("nonsense")
	assert.False(t, ok)
}

func TestCoerceIntAndBool(t *testing.T) {
	got, ok := IntField().Coerce("42")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	_, ok = IntField().Coerce("forty-two")
	assert.False(t, ok)

	got, ok = BoolField().Coerce("true")
	require.True(t, ok)
	assert.Equal(t, true, got)
}

func TestCoerceFailureKeepsOriginal(t *testing.T) {
	raw := "not-a-uuid"
	got, ok := UUIDField().Coerce(raw)
	assert.False(t, ok)
	assert.Equal(t, raw, got)
}

func TestKindSchemasDeclareEnvelopeFields(t *testing.T) {
	for name, schema := range map[string]Schema{
		"job":             JobSchema(),
		"dataset":         DatasetSchema(),
		"runtime":         RuntimeSchema(),
		"user_code":       UserCodeSchema(),
		"custom_function": CustomFunctionSchema(),
	} {
		assert.Contains(t, schema, "uid", name)
		assert.Contains(t, schema, "created_by", name)
		assert.Contains(t, schema, "name", name)
	}
}
