package settings

import (
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/huynhanx03/pagekv/pkg/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("pow2", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Int {
			return false
		}
		return utils.IsPowerOfTwo(int(f.Int()))
	})
	return v
}

// Load reads a YAML configuration file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses a YAML configuration file and applies defaults without validating,
// leaving room for overrides.
func Read(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Validate checks every section against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Validate checks the store section alone.
func (s Store) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(err, "invalid store config")
	}
	return nil
}
