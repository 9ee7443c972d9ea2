package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/croixa/astrix/errs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "astrix.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "config/asterix.ini", cfg.Definitions.Manifest)
	require.Equal(t, "raw", cfg.Input.Framing)
	require.Equal(t, "text", cfg.Output.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[definitions]
manifest = "defs/definitions.txt"

[input]
framing = "pcap"

[output]
format = "jsone"

[[filter]]
category = 62
item = "010"
field = "SAC"

[[filter]]
category = 48
item = "240"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "defs/definitions.txt", cfg.Definitions.Manifest)
	require.Equal(t, "pcap", cfg.Input.Framing)
	require.Equal(t, "jsone", cfg.Output.Format)
	require.Len(t, cfg.Filters, 2)
	require.Equal(t, "SAC", cfg.Filters[0].Field)
	require.Empty(t, cfg.Filters[1].Field)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[output]
format = "xml"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "xml", cfg.Output.Format)
	require.Equal(t, "raw", cfg.Input.Framing)
	require.Equal(t, "config/asterix.ini", cfg.Definitions.Manifest)
}

func TestLoadErrors(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		require.ErrorIs(t, err, errs.ErrConfig)
	})

	t.Run("Bad TOML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "definitions = ["))
		require.ErrorIs(t, err, errs.ErrConfig)
	})

	t.Run("Bad framing", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[input]\nframing = \"hdlc\"\n"))
		require.ErrorIs(t, err, errs.ErrConfig)
	})

	t.Run("Bad format", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[output]\nformat = \"yaml\"\n"))
		require.ErrorIs(t, err, errs.ErrConfig)
	})

	t.Run("Bad filter", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[[filter]]\ncategory = 300\nitem = \"010\"\n"))
		require.ErrorIs(t, err, errs.ErrConfig)

		_, err = Load(writeConfig(t, "[[filter]]\ncategory = 62\n"))
		require.ErrorIs(t, err, errs.ErrConfig)
	})
}
