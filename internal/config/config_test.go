package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "user01", cfg.User.ID)
}

func TestFromYAMLKeepsDefaultsForMissingSections(t *testing.T) {
	cfg, err := FromYAML([]byte("storage:\n  driver: json\n"))
	require.NoError(t, err)
	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Equal(t, "user01", cfg.User.ID)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"driver":  "storage:\n  driver: postgres\n",
		"level":   "log:\n  level: chatty\n",
		"format":  "log:\n  format: xml\n",
		"garbage": "storage: [",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptionalMissing(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)

	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "not found")
}

func TestWriteThenLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.User.ID = "tester"
	require.NoError(t, Write(dir, cfg, false))
	assert.Error(t, Write(dir, cfg, false))
	require.NoError(t, Write(dir, cfg, true))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	raw, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "tester")
}
