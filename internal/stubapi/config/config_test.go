package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/smartaccess/internal/stubapi"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.Equal(t, stubapi.LoginFlat, c.LoginShape)
	assert.Equal(t, 3, c.VerifyAfter)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STUB_ADDR", ":9999")
	t.Setenv("STUB_TOKEN_TTL", "90s")
	t.Setenv("STUB_LOGIN_SHAPE", "envelope")
	t.Setenv("STUB_STATUS_FAILURES", "2")

	got, err := LoadConfig(nil)
	require.NoError(t, err)

	want := defaults()
	want.Addr = ":9999"
	want.TokenTTL = 90 * time.Second
	want.LoginShape = stubapi.LoginEnvelope
	want.StatusFailures = 2
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STUB_ADDR", ":9999")
	t.Setenv("STUB_VERIFY_AFTER", "7")

	got, err := LoadConfig([]string{"-a", ":7000", "-t", "5", "-x", "ignored"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", got.Addr)
	assert.Equal(t, 5*time.Minute, got.TokenTTL)
	assert.Equal(t, 7, got.VerifyAfter)
}

func TestLoadConfig_BadEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STUB_VERIFY_AFTER", "many")

	_, err := LoadConfig(nil)
	assert.Error(t, err)
}

func TestLoadConfig_BadFlag(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := LoadConfig([]string{"-v", "many"})
	assert.Error(t, err)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("STUB_SECRET=from-file\nSTUB_ADDR=:1111\n"), 0o600))
	t.Setenv("STUB_ADDR", ":2222")
	t.Cleanup(func() { _ = os.Unsetenv("STUB_SECRET") })

	got, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-file", got.Secret)
	assert.Equal(t, ":2222", got.Addr, "process environment wins over .env")
}
