package cmd

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const configFile = "config/fhirsearch.yml"

const envPrefix = "FHIRSEARCH_"

type Config struct {
	FHIR   FHIRConfig   `koanf:"fhir"`
	Search SearchConfig `koanf:"search"`
	Log    LogConfig    `koanf:"log"`
}

type FHIRConfig struct {
	// BaseURL points to the FHIR server, e.g. https://hapi.fhir.org/baseR4.
	BaseURL string `koanf:"baseurl"`
	// Username and Password enable HTTP Basic authentication when the username is set.
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// Headers are added to every request sent to the FHIR server.
	Headers map[string]string `koanf:"headers"`
}

// SearchConfig holds the Patient search parameters. Empty parameters are left
// out of the search.
type SearchConfig struct {
	ID         string `koanf:"id"`
	Identifier string `koanf:"identifier"`
	Family     string `koanf:"family"`
	Given      string `koanf:"given"`
	BirthDate  string `koanf:"birthdate"`
	Gender     string `koanf:"gender"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	// HTTPRequests enables logging of every request to the FHIR server.
	HTTPRequests bool `koanf:"httprequests"`
}

func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			Family: "Melonseed",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// (config/fhirsearch.yml), FHIRSEARCH_* environment variables and the command
// line arguments, in that order. The FHIR base URL may be passed as the first
// argument; one way or another it must be configured.
func LoadConfig(args []string) (Config, error) {
	k := koanf.New(".")
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return Config{}, errors.Wrap(err, "failed to load config file")
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return Config{}, errors.Wrap(err, "failed to load environment variables")
	}
	config := DefaultConfig()
	if err := k.Unmarshal("", &config); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	if len(args) > 0 {
		config.FHIR.BaseURL = args[0]
	}
	if config.FHIR.BaseURL == "" {
		return Config{}, errors.New("the base URL of the FHIR server must be configured, e.g.: fhirsearch https://hapi.fhir.org/baseR4")
	}
	return config, nil
}
