// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/demand-dashboard/pkg/constants"
)

// ValidateLogFormat checks if the log format is one of the supported formats.
func ValidateLogFormat(format string) error {
	if format != constants.LogFormatJSON && format != constants.LogFormatConsole {
		return fmt.Errorf("expected log format of %s or %s, got %s",
			constants.LogFormatJSON, constants.LogFormatConsole, format)
	}
	return nil
}

// ValidateLogLevel checks if the log level is one zap understands.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s", level)
}

// ValidateStoreDriver checks if the forecast cache driver is supported.
func ValidateStoreDriver(driver string) error {
	switch driver {
	case constants.StoreDriverFile, constants.StoreDriverMemory, constants.StoreDriverPostgres:
		return nil
	}
	return fmt.Errorf("expected store driver of %s, %s or %s, got %s",
		constants.StoreDriverFile, constants.StoreDriverMemory, constants.StoreDriverPostgres, driver)
}

// ValidateProvider checks if the completion provider is supported.
func ValidateProvider(provider string) error {
	if provider != constants.ProviderOpenRouter && provider != constants.ProviderGemini {
		return fmt.Errorf("expected completion provider of %s or %s, got %s",
			constants.ProviderOpenRouter, constants.ProviderGemini, provider)
	}
	return nil
}

// ValidateCacheKey checks that a cache key can be used as a file name.
func ValidateCacheKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key must not be empty")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("cache key %q must not contain path separators", key)
	}
	return nil
}
