package wrapper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/config/memory"
)

func TestBoolConfig(t *testing.T) {
	defaultValue := true
	overridenValue := false
	mock := memory.NewConfig(nil)
	wrapper := NewBoolConfig(mock, defaultValue)

	// Return the default value when no override is set
	val, err := wrapper.GetSafe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)

	// The overriden value is returned when set
	mock.SetValue(overridenValue)
	val, err = wrapper.GetSafe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, overridenValue, val)

	// String sources are parsed
	mock.SetValue([]byte("true"))
	assert.True(t, wrapper.Get(context.Background()))

	// The last observed config value is returned on error
	mock.InduceErrors()
	val, err = wrapper.GetSafe(context.Background())
	require.Error(t, err)
	assert.True(t, val)

	// The default value is returned when the override no longer has a value
	mock.StopInducingErrors()
	mock.ClearValue()
	assert.Equal(t, defaultValue, wrapper.Get(context.Background()))

	// Return an unsupported source value type
	mock.SetValue(1.5)
	_, err = wrapper.GetSafe(context.Background())
	assert.Equal(t, ErrUnsuportedConversion, err)
}

func TestUint64Config(t *testing.T) {
	var defaultValue uint64 = 64
	mock := memory.NewConfig(nil)
	wrapper := NewUint64Config(mock, defaultValue)

	assert.Equal(t, defaultValue, wrapper.Get(context.Background()))

	for _, override := range []interface{}{uint64(10), uint(10), 10, []byte("10")} {
		mock.SetValue(override)
		val, err := wrapper.GetSafe(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 10, val)
	}

	// Unparseable values keep the last known value
	mock.SetValue([]byte("ten"))
	val, err := wrapper.GetSafe(context.Background())
	assert.Error(t, err)
	assert.EqualValues(t, 10, val)

	mock.SetValue(-1)
	_, err = wrapper.GetSafe(context.Background())
	assert.Error(t, err)

	mock.SetValue("10")
	_, err = wrapper.GetSafe(context.Background())
	assert.Equal(t, ErrUnsuportedConversion, err)
}

func TestDurationConfig(t *testing.T) {
	defaultValue := time.Second
	mock := memory.NewConfig(nil)
	wrapper := NewDurationConfig(mock, defaultValue)

	assert.Equal(t, defaultValue, wrapper.Get(context.Background()))

	mock.SetValue(time.Minute)
	assert.Equal(t, time.Minute, wrapper.Get(context.Background()))

	mock.SetValue([]byte("250ms"))
	assert.Equal(t, 250*time.Millisecond, wrapper.Get(context.Background()))

	mock.SetValue([]byte("soon"))
	val, err := wrapper.GetSafe(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 250*time.Millisecond, val)
}
