package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/category"
	"github.com/Veraticus/tally/internal/city"
	"github.com/Veraticus/tally/internal/common"
)

func loadFrom(t *testing.T, dir string) (*Config, error) {
	t.Helper()
	return Load(NewViper(), LoadOptions{SearchPaths: []string{dir}})
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")

	cfg, err := loadFrom(t, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".local/share/tally/tally.db"), cfg.Database.Path)
	assert.Equal(t, "default", cfg.User)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, city.DefaultOptions().SynonymBoost, cfg.City.SynonymBoost)
	assert.Equal(t, city.DefaultOptions().MinConfidence, cfg.City.MinConfidence)
	assert.True(t, cfg.City.CleanResult)
	assert.Equal(t, category.MatchSubstring, cfg.MatchMode())
	assert.Equal(t, 3, cfg.Ledger.MinTokenLength)

	opts := cfg.CityOptions()
	assert.Equal(t, 1.0, opts.Weight(city.PatternKnownCity))
	assert.InDelta(t, 0.1, opts.KnownCityBoost, 1e-9)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
database:
  path: /tmp/tally-test.db
user: alice
city:
  min_confidence: 0.75
  clean_result: false
  pattern_weights:
    uppercase-tail: 0
    known-city-word: 1.5
category:
  match_mode: word
ledger:
  min_token_length: 4
  stop_words: [магазин]
`)

	cfg, err := loadFrom(t, dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/tally-test.db", cfg.Database.Path)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, category.MatchWord, cfg.MatchMode())

	opts := cfg.CityOptions()
	assert.InDelta(t, 0.75, opts.MinConfidence, 1e-9)
	assert.False(t, opts.CleanResult)
	assert.Zero(t, opts.Weight(city.PatternUpperTail))
	assert.InDelta(t, 1.5, opts.Weight(city.PatternKnownCity), 1e-9)

	tok := cfg.Tokenizer()
	assert.True(t, tok.IsStopWord("МАГАЗИН"))
	assert.Equal(t, []string{"евроопт"}, tok.Tokenize("магазин Евроопт Лид"))
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "user: alice\n")
	t.Setenv("TALLY_USER", "bob")
	t.Setenv("TALLY_CITY_SYNONYM_BOOST", "0.35")
	t.Setenv("TALLY_LOGGING_LEVEL", "debug")

	cfg, err := loadFrom(t, dir)
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.User)
	assert.InDelta(t, 0.35, cfg.City.SynonymBoost, 1e-9)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TALLY_CATEGORY_MATCH_MODE=word\n"), 0o600))
	t.Setenv("TALLY_CATEGORY_MATCH_MODE", "")
	require.NoError(t, os.Unsetenv("TALLY_CATEGORY_MATCH_MODE"))

	cfg, err := Load(NewViper(), LoadOptions{SearchPaths: []string{dir}, EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, category.MatchWord, cfg.MatchMode())

	_, err = Load(NewViper(), LoadOptions{SearchPaths: []string{dir}, EnvFile: filepath.Join(dir, "missing.env")})
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{name: "boost above one", config: "city:\n  synonym_boost: 1.5\n"},
		{name: "negative threshold", config: "city:\n  min_confidence: -0.1\n"},
		{name: "unknown match mode", config: "category:\n  match_mode: fuzzy\n"},
		{name: "bad log level", config: "logging:\n  level: loud\n"},
		{name: "bad log format", config: "logging:\n  format: xml\n"},
		{name: "token length", config: "ledger:\n  min_token_length: 0\n"},
		{name: "empty user", config: "user: \"  \"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.config)
			_, err := loadFrom(t, dir)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user: carol\n"), 0o600))

	cfg, err := Load(NewViper(), LoadOptions{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "carol", cfg.User)

	_, err = Load(NewViper(), LoadOptions{ConfigFile: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	cfg, err := loadFrom(t, t.TempDir())
	require.NoError(t, err)

	seed, err := cfg.Seed()
	require.NoError(t, err)
	_, ok := seed.CityRegistry().Resolve("Hrodna")
	assert.True(t, ok)

	extra := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(extra, []byte("cities:\n  - name: Несвиж\n    aliases: [Nesvizh]\n"), 0o600))
	cfg.City.SeedFile = extra
	seed, err = cfg.Seed()
	require.NoError(t, err)
	ent, ok := seed.CityRegistry().Resolve("nesvizh")
	require.True(t, ok)
	assert.Equal(t, "Несвиж", ent.CanonicalID)
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TALLY_TEST_DIR", "/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "tally.db"), ExpandPath("~/tally.db"))
	assert.Equal(t, "/data/tally.db", ExpandPath("$TALLY_TEST_DIR/tally.db"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
}

func TestDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	assert.Equal(t, filepath.Join(home, ".config", "tally"), ConfigDir())
	assert.Equal(t, filepath.Join(home, ".local", "share", "tally", "tally.db"), DefaultDatabasePath())
	assert.Equal(t, []string{filepath.Join(home, ".config", "tally"), "."}, defaultSearchPaths())

	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg")
	t.Setenv("XDG_DATA_HOME", "relative")
	assert.Equal(t, "/etc/xdg/tally", ConfigDir())
	assert.Equal(t, filepath.Join(home, ".local", "share", "tally"), DataDir())
}
