package validation

import "testing"

func TestValidateLogFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{
			name:      "Valid json format",
			format:    "json",
			expectErr: false,
		},
		{
			name:      "Valid console format",
			format:    "console",
			expectErr: false,
		},
		{
			name:      "Empty format",
			format:    "",
			expectErr: true,
		},
		{
			name:      "Case sensitive - uppercase",
			format:    "JSON",
			expectErr: true,
		},
		{
			name:      "Leading/trailing spaces",
			format:    " console ",
			expectErr: true,
		},
		{
			name:      "Unsupported format",
			format:    "logfmt",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLogFormat(tt.format)
			if tt.expectErr && err == nil {
				t.Errorf("Expected error for format %q, but got none", tt.format)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error for format %q, but got: %v", tt.format, err)
			}
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error"} {
		if err := ValidateLogLevel(level); err != nil {
			t.Errorf("Expected level %q to be valid, got: %v", level, err)
		}
	}
	for _, level := range []string{"", "trace", "INFO", "fatal"} {
		if err := ValidateLogLevel(level); err == nil {
			t.Errorf("Expected level %q to be rejected", level)
		}
	}
}

func TestValidateStoreDriver(t *testing.T) {
	for _, driver := range []string{"file", "memory", "postgres"} {
		if err := ValidateStoreDriver(driver); err != nil {
			t.Errorf("Expected driver %q to be valid, got: %v", driver, err)
		}
	}
	for _, driver := range []string{"", "redis", "File"} {
		if err := ValidateStoreDriver(driver); err == nil {
			t.Errorf("Expected driver %q to be rejected", driver)
		}
	}
}

func TestValidateProvider(t *testing.T) {
	if err := ValidateProvider("openrouter"); err != nil {
		t.Errorf("Expected openrouter to be valid, got: %v", err)
	}
	if err := ValidateProvider("gemini"); err != nil {
		t.Errorf("Expected gemini to be valid, got: %v", err)
	}
	if err := ValidateProvider("openai"); err == nil {
		t.Error("Expected openai to be rejected")
	}
}

func TestValidateCacheKey(t *testing.T) {
	tests := []struct {
		key       string
		expectErr bool
	}{
		{key: "nexora_forecast_data", expectErr: false},
		{key: "forecast.v2", expectErr: false},
		{key: "", expectErr: true},
		{key: "   ", expectErr: true},
		{key: "../escape", expectErr: true},
		{key: `dir\file`, expectErr: true},
		{key: "..", expectErr: true},
	}

	for _, tt := range tests {
		err := ValidateCacheKey(tt.key)
		if tt.expectErr && err == nil {
			t.Errorf("Expected error for key %q, but got none", tt.key)
		}
		if !tt.expectErr && err != nil {
			t.Errorf("Expected no error for key %q, but got: %v", tt.key, err)
		}
	}
}
