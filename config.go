package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "VIZIR"

type Config struct {
	Type     string `mapstructure:"type"`
	Version  string `mapstructure:"version"`
	Build    int64  `mapstructure:"build"`
	Path     string `mapstructure:"path"`
	RAM      string `mapstructure:"ram"`
	GUI      bool   `mapstructure:"gui"`
	Auto     bool   `mapstructure:"auto"`
	Java     bool   `mapstructure:"java"`
	NoScript bool   `mapstructure:"noscript"`
	Verbose  bool   `mapstructure:"verbose"`

	PaperAPI    string `mapstructure:"paper_api"`
	PurpurAPI   string `mapstructure:"purpur_api"`
	AdoptiumAPI string `mapstructure:"adoptium_api"`
	UserAgent   string `mapstructure:"user_agent"`
}

func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(
		`-`, `_`,
		`.`, `_`,
	))
	v.AutomaticEnv()

	v.SetDefault("build", LatestBuild)
	v.SetDefault("paper_api", DefaultPaperAPI)
	v.SetDefault("purpur_api", DefaultPurpurAPI)
	v.SetDefault("adoptium_api", DefaultAdoptiumAPI)
	v.SetDefault("user_agent", "vizir/"+verStr)
	return v
}

// LoadConfig loads the env file and the config file named in v, if any, and
// decodes everything into a Config. Flags and environment win over the file.
func LoadConfig(v *viper.Viper) (*Config, error) {
	if envFile := v.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Type != "" {
		if _, err := GetDistribution(c.Type, c); err != nil {
			return err
		}
	}
	if c.Build < LatestBuild {
		return fmt.Errorf("build must be a build number or %d for the latest", LatestBuild)
	}
	if c.PaperAPI == "" || c.PurpurAPI == "" {
		return errors.New("metadata API base URLs must not be empty")
	}
	return nil
}
