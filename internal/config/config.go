// Package config loads process configuration.
//
// Services read a YAML file through viper. A value written as "$env:NAME" is
// taken from the environment variable NAME. The operator CLI reads only the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

// ErrConfigurationMissing is returned when a required setting is absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// Load reads configFile over defaults into out. Every "$env:NAME" value needs
// NAME to be set, else ErrConfigurationMissing is returned.
func Load(configFile string, defaults map[string]interface{}, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	err := v.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config %q: %w", configFile, err)
	}
	var missing []string
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if !strings.HasPrefix(value, envConfigPrefix) {
			continue
		}
		name := value[len(envConfigPrefix):]
		if _, ok := os.LookupEnv(name); !ok {
			missing = append(missing, name)
			continue
		}
		if err := v.BindEnv(key, name); err != nil {
			return fmt.Errorf("failed to prepare config: %w", err)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return nil
}

// FromEnv fills out from `env` tags. Unset `required` variables are reported
// as ErrConfigurationMissing.
func FromEnv(out interface{}) error {
	err := env.Parse(out)
	if err == nil {
		return nil
	}
	var agg env.AggregateError
	if errors.As(err, &agg) {
		var missing []string
		for _, e := range agg.Errors {
			var notSet env.EnvVarIsNotSetError
			var empty env.EmptyEnvVarError
			switch {
			case errors.As(e, &notSet):
				missing = append(missing, notSet.Key)
			case errors.As(e, &empty):
				missing = append(missing, empty.Key)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
		}
	}
	return fmt.Errorf("parse env: %w", err)
}
