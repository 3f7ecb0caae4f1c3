package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sigilerrors "github.com/conneroisu/sigil/internal/errors"
	"github.com/conneroisu/sigil/internal/logging"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	root := t.TempDir()
	viper.Set("root", root)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, root, config.Root)
	assert.Equal(t, filepath.Join(root, "app", "views"), config.Templates.Dir)
	assert.Equal(t, ".html", config.Templates.Extension)
	assert.Equal(t, filepath.Join(root, "app", "views", "cache"), config.Cache.Dir)
	assert.Equal(t, int64(8<<20), config.Cache.MemoryBytes)
	assert.False(t, config.Compiler.StrictSectionNames)
	assert.Equal(t, []string{"strings", "html"}, config.Render.Imports)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "auto", config.Log.Format)
	assert.Equal(t, 300*time.Millisecond, config.Watch.Debounce)
}

func TestLoadOverrides(t *testing.T) {
	viper.Reset()
	root := t.TempDir()
	absCache := filepath.Join(t.TempDir(), "compiled")

	viper.Set("root", root)
	viper.Set("templates.dir", "views")
	viper.Set("templates.extension", ".tpl")
	viper.Set("cache.dir", absCache)
	viper.Set("cache.memory_bytes", 0)
	viper.Set("compiler.strict_section_names", true)
	viper.Set("render.imports", []string{"strings"})
	viper.Set("log.level", "debug")
	viper.Set("log.format", "json")
	viper.Set("watch.debounce", "1s")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "views"), config.Templates.Dir)
	assert.Equal(t, ".tpl", config.Templates.Extension)
	assert.Equal(t, absCache, config.Cache.Dir, "absolute directories are kept")
	assert.Zero(t, config.Cache.MemoryBytes)
	assert.True(t, config.Compiler.StrictSectionNames)
	assert.Equal(t, []string{"strings"}, config.Render.Imports)
	assert.Equal(t, time.Second, config.Watch.Debounce)

	logCfg, err := config.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, logCfg.Level)
	assert.Equal(t, "json", logCfg.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Setenv("SIGIL_ROOT", t.TempDir())
	t.Setenv("SIGIL_TEMPLATES_EXTENSION", ".view")
	t.Setenv("SIGIL_COMPILER_STRICT_SECTION_NAMES", "true")
	BindEnv()

	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ".view", config.Templates.Extension)
	assert.True(t, config.Compiler.StrictSectionNames)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"extension without dot", "templates.extension", "html"},
		{"extension with separator", "templates.extension", "./html"},
		{"empty template dir", "templates.dir", " "},
		{"cache equals templates", "cache.dir", "app/views"},
		{"negative memory", "cache.memory_bytes", -1},
		{"bad level", "log.level", "loud"},
		{"bad format", "log.format", "xml"},
		{"negative debounce", "watch.debounce", "-1s"},
		{"empty import", "render.imports", []string{"strings", ""}},
		{"undecodable memory", "cache.memory_bytes", "lots"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("root", t.TempDir())
			viper.Set(tc.key, tc.value)

			config, err := Load()
			require.Error(t, err)
			assert.Nil(t, config)

			var se *sigilerrors.SigilError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, sigilerrors.ErrCodeConfigInvalid, se.Code)
		})
	}
}
