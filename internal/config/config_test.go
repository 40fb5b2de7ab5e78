package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/digital-twin/internal/cache"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/llm"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoadSimulation_Defaults(t *testing.T) {
	params := LoadSimulation(newViper(t, ""))
	assert.Equal(t, simulation.DefaultParams(), params)
}

func TestLoadSimulation_File(t *testing.T) {
	v := newViper(t, `
simulation:
  individuals: 10
  smes: 5
  corporates: 2
  seed: 7
  months: 3
  model: xgboost
`)

	params := LoadSimulation(v)
	assert.Equal(t, 10, params.Individuals)
	assert.Equal(t, 5, params.SMEs)
	assert.Equal(t, 2, params.Corporates)
	assert.Equal(t, uint64(7), params.Seed)
	assert.Equal(t, 3, params.Months)
	assert.Equal(t, "xgboost", params.Model)
	assert.Equal(t, simulation.DefaultMaxSample, params.MaxSample)
}

func TestLoadLLM(t *testing.T) {
	t.Run("key from config", func(t *testing.T) {
		v := newViper(t, `
llm:
  provider: openai
  openai_api_key: from-config
  model: gpt-4o
  retry_delay: 250ms
`)
		cfg, err := LoadLLM(v)
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "from-config", cfg.APIKey)
		assert.Equal(t, "gpt-4o", cfg.Model)
		assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
		assert.Equal(t, 3, cfg.MaxRetries)
		assert.Equal(t, 60, cfg.RateLimit)
	})

	t.Run("key from provider environment variable", func(t *testing.T) {
		t.Setenv("MISTRAL_API_KEY", "from-env")

		cfg, err := LoadLLM(newViper(t, ""))
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderMistral, cfg.Provider)
		assert.Equal(t, "from-env", cfg.APIKey)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		v := newViper(t, "llm:\n  provider: Anthropic\n")
		cfg, err := LoadLLM(v)
		require.ErrorIs(t, err, common.ErrMissingConfig)
		assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
		assert.Equal(t, llm.ProviderAnthropic, cfg.Provider)
	})
}

func TestLoadCache(t *testing.T) {
	cfg := LoadCache(newViper(t, ""))
	assert.Equal(t, cache.BackendMemory, cfg.Backend)
	assert.Equal(t, cache.DefaultTTL, cfg.TTL)

	cfg = LoadCache(newViper(t, `
cache:
  backend: redis
  ttl: 5m
  redis:
    address: localhost:6379
    db: 2
`))
	assert.Equal(t, cache.BackendRedis, cfg.Backend)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadServerAndLogging(t *testing.T) {
	v := newViper(t, "server:\n  addr: 127.0.0.1:9000\nlogging:\n  level: debug\n")

	server := LoadServer(v)
	assert.Equal(t, "127.0.0.1:9000", server.Addr)
	assert.Equal(t, 15*time.Second, server.ReadTimeout)

	logging := LoadLogging(v)
	assert.Equal(t, "debug", logging.Level)
	assert.Equal(t, "console", logging.Format)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("TWIN_TEST_DIR", "/tmp/twin")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/runs.db", want: filepath.Join(home, "runs.db")},
		{name: "env var", in: "$TWIN_TEST_DIR/runs.db", want: "/tmp/twin/runs.db"},
		{name: "plain", in: "/var/lib/twin.db", want: "/var/lib/twin.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDir(t *testing.T) {
	dir, err := Dir()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(dir, filepath.Join(".config", "twin")))
}
