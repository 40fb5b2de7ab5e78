package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/digital-twin/internal/cache"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/llm"
	"github.com/Veraticus/digital-twin/internal/population"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

// EnvPrefix is the prefix of environment variables read by viper.
const EnvPrefix = "TWIN"

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TLS          bool
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("simulation.individuals", simulation.DefaultIndividuals)
	v.SetDefault("simulation.smes", simulation.DefaultSMEs)
	v.SetDefault("simulation.corporates", simulation.DefaultCorporates)
	v.SetDefault("simulation.seed", simulation.DefaultSeed)
	v.SetDefault("simulation.sample_seed", population.DefaultSampleSeed)
	v.SetDefault("simulation.months", simulation.DefaultMonths)
	v.SetDefault("simulation.max_sample", simulation.DefaultMaxSample)
	v.SetDefault("simulation.model", simulation.DefaultParams().Model)
	v.SetDefault("simulation.label", simulation.DefaultParams().Label)

	v.SetDefault("llm.provider", llm.ProviderMistral)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.rate_limit", 60)

	v.SetDefault("cache.backend", cache.BackendMemory)
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.tls", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadSimulation reads the simulation parameters.
func LoadSimulation(v *viper.Viper) simulation.Params {
	return simulation.Params{
		Individuals: v.GetInt("simulation.individuals"),
		SMEs:        v.GetInt("simulation.smes"),
		Corporates:  v.GetInt("simulation.corporates"),
		Seed:        v.GetUint64("simulation.seed"),
		SampleSeed:  v.GetUint64("simulation.sample_seed"),
		Months:      v.GetInt("simulation.months"),
		MaxSample:   v.GetInt("simulation.max_sample"),
		Model:       v.GetString("simulation.model"),
		Label:       v.GetString("simulation.label"),
	}
}

// LoadLLM reads the language model settings. The API key comes from
// llm.<provider>_api_key, falling back to the <PROVIDER>_API_KEY environment
// variable.
func LoadLLM(v *viper.Viper) (llm.Config, error) {
	provider := strings.ToLower(v.GetString("llm.provider"))
	if provider == "" {
		provider = llm.ProviderMistral
	}

	cfg := llm.Config{
		Provider:    provider,
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		MaxRetries:  v.GetInt("llm.max_retries"),
		RetryDelay:  v.GetDuration("llm.retry_delay"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Timeout:     v.GetDuration("llm.timeout"),
	}

	apiKey := v.GetString("llm." + provider + "_api_key")
	if apiKey == "" {
		apiKey = os.Getenv(strings.ToUpper(provider) + "_API_KEY")
	}
	if apiKey == "" {
		return cfg, fmt.Errorf("%w: %s API key not found in config or %s_API_KEY environment variable",
			common.ErrMissingConfig, provider, strings.ToUpper(provider))
	}
	cfg.APIKey = apiKey

	return cfg, nil
}

// LoadCache reads the population cache settings.
func LoadCache(v *viper.Viper) cache.Config {
	return cache.Config{
		Backend: v.GetString("cache.backend"),
		TTL:     v.GetDuration("cache.ttl"),
		Redis: cache.RedisConfig{
			Address:  v.GetString("cache.redis.address"),
			Password: v.GetString("cache.redis.password"),
			DB:       v.GetInt("cache.redis.db"),
		},
	}
}

// LoadServer reads the HTTP server settings.
func LoadServer(v *viper.Viper) ServerConfig {
	return ServerConfig{
		Addr:         v.GetString("server.addr"),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		TLS:          v.GetBool("server.tls"),
	}
}

// LoadLogging reads the logging settings.
func LoadLogging(v *viper.Viper) LoggingConfig {
	return LoggingConfig{
		Level:  v.GetString("logging.level"),
		Format: v.GetString("logging.format"),
	}
}
