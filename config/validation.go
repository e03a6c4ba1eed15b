package config

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration and resolves the values that need
// parsing.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	shardSize, err := humanize.ParseBytes(cfg.ShardSize)
	if err != nil {
		return fmt.Errorf("shard_size: %w", err)
	}
	if shardSize == 0 || shardSize > math.MaxInt32 {
		return fmt.Errorf("shard_size: %s is out of range", cfg.ShardSize)
	}
	cfg.ShardSizeBytes = int(shardSize)

	if cfg.SevenZip.Timeout == "" {
		cfg.SevenZip.Timeout = DefaultSevenZipTimeout
	}
	timeout, err := time.ParseDuration(cfg.SevenZip.Timeout)
	if err != nil {
		return fmt.Errorf("sevenzip.timeout: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("sevenzip.timeout: must be positive")
	}
	cfg.SevenZipTimeout = timeout

	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
