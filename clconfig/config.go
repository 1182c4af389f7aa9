// Package clconfig provides re-usable configuration utilities
package clconfig

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
)

// validate is shared because it caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// EnvConfigurer returns a function that parses environment variables into a configuration struct T. If the
// prefix is provided it will set a prefix for the underlying environment parser. The parsed struct is
// validated according to its "validate" tags.
func EnvConfigurer[T any](prefix ...string) func(o env.Options) (T, error) {
	return func(envo env.Options) (T, error) {
		var cfg T

		if len(prefix) > 0 {
			envo.Prefix = prefix[0]
		}

		if err := env.ParseWithOptions(&cfg, envo); err != nil {
			return cfg, fmt.Errorf("failed to parse environment: %w", err)
		}

		if err := Validate(cfg); err != nil {
			return cfg, err
		}

		return cfg, nil
	}
}

// Validate checks the "validate" struct tags of a configuration value. Non-struct values always pass.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var ive *validator.InvalidValidationError
		if errors.As(err, &ive) {
			return nil
		}

		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// Provide configuration T as an fx dependency that parses the environment with an optional prefix.
func Provide[T any](prefix ...string) fx.Option {
	return fx.Provide(fx.Annotate(
		EnvConfigurer[T](prefix...),
		fx.ParamTags(`optional:"true"`)))
}
