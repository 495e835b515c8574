package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("CDA_TEST_INT", "42")
	t.Setenv("CDA_TEST_FLOAT", "2.5")
	t.Setenv("CDA_TEST_BOOL", "false")
	t.Setenv("CDA_TEST_BAD", "abc")

	i, err := GetEnv("CDA_TEST_INT", 1)
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	f, err := GetEnv("CDA_TEST_FLOAT", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	b, err := GetEnv("CDA_TEST_BOOL", true)
	require.NoError(t, err)
	assert.False(t, b)

	s, err := GetEnv("CDA_TEST_MISSING", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", s)

	bad, err := GetEnv("CDA_TEST_BAD", 7)
	assert.Error(t, err)
	assert.Equal(t, 7, bad)

	_, err = GetEnv("CDA_TEST_INT", []int{})
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CDA_MEMORY_SIZE", "3")
	t.Setenv("CDA_REVEAL_SHOUTS", "false")
	t.Setenv("CDA_SEED", "99")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MemorySize)
	assert.False(t, cfg.RevealShouts)
	assert.Equal(t, int64(99), cfg.Seed)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"CDA_MEMORY_SIZE":  "0",
		"CDA_BTREE_DEGREE": "1",
		"CDA_LOG_LEVEL":    "loud",
		"CDA_DAYS":         "many",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogDevelopment = true
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
