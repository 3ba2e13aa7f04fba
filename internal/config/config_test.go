package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "chronicles", cfg.ChronicleDir)
	require.Equal(t, "", cfg.DBPath)
	require.Equal(t, "PT6H", cfg.WindowLength)
	require.True(t, cfg.Watch)
	require.Equal(t, 250*time.Millisecond, cfg.ReloadDebounce)

	length, err := cfg.Length()
	require.NoError(t, err)
	require.Equal(t, 6*time.Hour, length)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OBSCHRONICLE_DIR", "/srv/chronicles")
	t.Setenv("OBSCHRONICLE_DB", "/var/lib/obschronicle.db")
	t.Setenv("OBSCHRONICLE_WINDOW_LENGTH", "PT3H")
	t.Setenv("OBSCHRONICLE_WATCH", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/srv/chronicles", cfg.ChronicleDir)
	require.Equal(t, "/var/lib/obschronicle.db", cfg.DBPath)
	require.False(t, cfg.Watch)

	length, err := cfg.Length()
	require.NoError(t, err)
	require.Equal(t, 3*time.Hour, length)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("OBSCHRONICLE_RELOAD_DEBOUNCE", "soon")

	_, err := Load()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "parse env:"), err.Error())
}

func TestLoadBadWindowLength(t *testing.T) {
	t.Setenv("OBSCHRONICLE_WINDOW_LENGTH", "P1M")

	_, err := Load()
	require.ErrorContains(t, err, "window length")
}

func TestValidateEmptyDir(t *testing.T) {
	cfg := Config{WindowLength: "PT6H"}
	require.ErrorContains(t, cfg.Validate(), "chronicle directory")
}
