// Package config loads storefront settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"drop-storefront/internal/content"
)

// EnvProduction is the STOREFRONT_ENV value that enables production defaults.
const EnvProduction = "production"

// ContentConfig selects the content store project.
type ContentConfig struct {
	ProjectID  string `env:"PROJECT_ID" envDefault:"mnrnuiw2"`
	Dataset    string `env:"DATASET" envDefault:"production"`
	APIVersion string `env:"API_VERSION" envDefault:"2021-03-25"`
	UseCDN     *bool  `env:"USE_CDN"` // unset: on in production
	// BaseURL overrides the API host derived from the project id.
	BaseURL string `env:"API_URL"`
}

// SolanaConfig selects the chain endpoints and the drop program.
type SolanaConfig struct {
	RPCEndpoint    string        `env:"RPC_ENDPOINT"`
	WSEndpoint     string        `env:"WS_ENDPOINT"`
	ProgramID      string        `env:"DROP_PROGRAM_ID"`
	MinterKey      string        `env:"MINTER_KEY"` // base58 64-byte secret key
	ConfirmTimeout time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"90s"`
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"500ms"`
	// Commitment is used for reads, preflight and signature subscriptions.
	Commitment string `env:"COMMITMENT" envDefault:"confirmed"`

	RPCTimeout    time.Duration `env:"RPC_TIMEOUT" envDefault:"30s"`
	RPCMaxRetries int           `env:"RPC_MAX_RETRIES" envDefault:"3"`
	RPCRetryDelay time.Duration `env:"RPC_RETRY_DELAY" envDefault:"1s"`
	RPCMaxDelay   time.Duration `env:"RPC_MAX_DELAY" envDefault:"10s"`
}

// Config is the full service configuration.
type Config struct {
	Env            string        `env:"STOREFRONT_ENV" envDefault:"development"`
	ListenAddr     string        `env:"STOREFRONT_ADDR" envDefault:":8080"`
	Domain         string        `env:"STOREFRONT_DOMAIN" envDefault:"localhost"`
	Debug          bool          `env:"STOREFRONT_DEBUG"`
	SessionSecret  string        `env:"STOREFRONT_SESSION_SECRET"`
	SessionTTL     time.Duration `env:"STOREFRONT_SESSION_TTL" envDefault:"720h"`
	ControllerIdle time.Duration `env:"STOREFRONT_CONTROLLER_IDLE" envDefault:"30m"`

	// Simulate serves in-process drops instead of reading the chain.
	Simulate bool `env:"STOREFRONT_SIMULATE"`

	Content ContentConfig `envPrefix:"SANITY_"`
	Solana  SolanaConfig  `envPrefix:"SOLANA_"`

	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`
	UseMemory     bool   `env:"USE_MEMORY"`
}

// Load reads an optional .env file and then the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := LoadEnvFile(envFile); err != nil {
			return Config{}, err
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Production reports whether production defaults apply.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// UseCDN resolves the CDN flag: explicit setting, else on in production.
func (c Config) UseCDN() bool {
	if c.Content.UseCDN != nil {
		return *c.Content.UseCDN
	}
	return c.Production()
}

// ContentClientConfig returns the content client settings.
func (c Config) ContentClientConfig() content.Config {
	return content.Config{
		ProjectID:  c.Content.ProjectID,
		Dataset:    c.Content.Dataset,
		APIVersion: c.Content.APIVersion,
		UseCDN:     c.UseCDN(),
	}
}

// ContentClientOptions returns client options implied by the settings.
func (c Config) ContentClientOptions() []content.ClientOption {
	if c.Content.BaseURL == "" {
		return nil
	}
	return []content.ClientOption{content.WithBaseURL(c.Content.BaseURL)}
}

// Validate checks that the settings required by the selected modes are present.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("STOREFRONT_ADDR is required"))
	}
	if c.Production() && c.SessionSecret == "" {
		errs = append(errs, errors.New("STOREFRONT_SESSION_SECRET is required in production"))
	}
	if !c.Simulate {
		if c.Solana.RPCEndpoint == "" {
			errs = append(errs, errors.New("SOLANA_RPC_ENDPOINT is required (or set STOREFRONT_SIMULATE)"))
		}
		if c.Solana.ProgramID == "" {
			errs = append(errs, errors.New("SOLANA_DROP_PROGRAM_ID is required (or set STOREFRONT_SIMULATE)"))
		}
		if c.Solana.MinterKey == "" {
			errs = append(errs, errors.New("SOLANA_MINTER_KEY is required (or set STOREFRONT_SIMULATE)"))
		}
		switch c.Solana.Commitment {
		case "", "confirmed", "finalized":
		default:
			errs = append(errs, fmt.Errorf("SOLANA_COMMITMENT must be confirmed or finalized, got %q", c.Solana.Commitment))
		}
		if c.Solana.RPCMaxRetries < 0 {
			errs = append(errs, errors.New("SOLANA_RPC_MAX_RETRIES must not be negative"))
		}
	}
	if !c.UseMemory && (c.PostgresDSN == "" || c.ClickhouseDSN == "") {
		errs = append(errs, errors.New("POSTGRES_DSN and CLICKHOUSE_DSN are required (or set USE_MEMORY)"))
	}
	return errors.Join(errs...)
}

// LoadEnvFile sets variables from a KEY=VALUE file without overriding the
// existing environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}
	}
	return nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
