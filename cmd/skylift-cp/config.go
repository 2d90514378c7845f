package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the control plane settings. Values come from defaults, an
// optional config file, and SKYLIFT_-prefixed environment variables, in
// increasing precedence.
type Config struct {
	Port       int           `mapstructure:"port"`
	Provider   string        `mapstructure:"provider"`
	Kubeconfig string        `mapstructure:"kubeconfig"`
	CatalogDir string        `mapstructure:"catalog_dir"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`

	// PollInterval between provisioning readiness checks.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// PrivateKeyPEM and PublicKeyPEM hold the ES256 signing keypair.
	// Empty generates an ephemeral pair, losing tokens on restart.
	PrivateKeyPEM string `mapstructure:"private_key_pem"`
	PublicKeyPEM  string `mapstructure:"public_key_pem"`
}

// LoadConfig reads configuration from the given file (optional) and the
// environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("provider", "fake")
	v.SetDefault("kubeconfig", "")
	v.SetDefault("catalog_dir", "")
	v.SetDefault("issuer", "skylift-cp")
	v.SetDefault("token_ttl", 90*24*time.Hour)
	v.SetDefault("poll_interval", 5*time.Second)

	v.SetEnvPrefix("SKYLIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Provider != "fake" && cfg.Provider != "kubernetes" {
		return nil, fmt.Errorf("unknown provider %q (want fake or kubernetes)", cfg.Provider)
	}
	return &cfg, nil
}
