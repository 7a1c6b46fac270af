package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfigurationDefaultsWhenMissing(t *testing.T) {
	conf, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Server.Address != constants.DefaultServerAddress {
		t.Fatalf("expected default address, got %q", conf.Server.Address)
	}
	if conf.Server.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Fatalf("expected default upload size, got %d", conf.Server.UploadSizeBytes())
	}
	if conf.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected 10s shutdown timeout, got %s", conf.Server.ShutdownTimeout)
	}
	if conf.Store.Driver != constants.StoreDriverFile || conf.Store.Key != constants.DefaultCacheKey {
		t.Fatalf("unexpected store defaults %+v", conf.Store)
	}
	if conf.Completion.Provider != constants.ProviderOpenRouter {
		t.Fatalf("expected openrouter provider, got %q", conf.Completion.Provider)
	}
	if conf.Completion.URL != constants.DefaultCompletionURL || conf.Completion.Model != constants.DefaultCompletionModel {
		t.Fatalf("unexpected completion defaults %+v", conf.Completion)
	}
	if conf.Completion.AppTitle != "AI forecast analyzer" {
		t.Fatalf("expected default app title, got %q", conf.Completion.AppTitle)
	}
	if conf.Auth.CookieName != "sb-access-token" {
		t.Fatalf("expected default cookie name, got %q", conf.Auth.CookieName)
	}
}

func TestLoadConfigurationFromFile(t *testing.T) {
	path := writeConfig(t, `server:
  address: 127.0.0.1:9000
  maxUploadSize: 2M
  shutdownTimeout: 3s
logging:
  level: debug
  format: console
  outputFile: /tmp/dashboard.log
store:
  driver: Memory
predict:
  baseURL: http://localhost:8000/
  timeout: 30s
completion:
  provider: gemini
auth:
  disabled: true
`)

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Server.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address override, got %s", conf.Server.Address)
	}
	if conf.Server.UploadSizeBytes() != 2*1024*1024 {
		t.Fatalf("expected max upload override, got %d", conf.Server.UploadSizeBytes())
	}
	if conf.Server.ShutdownTimeout != 3*time.Second {
		t.Fatalf("expected shutdown timeout 3s, got %s", conf.Server.ShutdownTimeout)
	}
	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" || conf.Logging.OutputFile != "/tmp/dashboard.log" {
		t.Fatalf("unexpected logging config %+v", conf.Logging)
	}
	if conf.Store.Driver != constants.StoreDriverMemory {
		t.Fatalf("expected normalized driver memory, got %q", conf.Store.Driver)
	}
	if conf.Predict.BaseURL != "http://localhost:8000" {
		t.Fatalf("expected trailing slash trimmed, got %q", conf.Predict.BaseURL)
	}
	if conf.Predict.Timeout != 30*time.Second {
		t.Fatalf("expected predict timeout 30s, got %s", conf.Predict.Timeout)
	}
	if conf.Completion.Provider != constants.ProviderGemini {
		t.Fatalf("expected gemini provider, got %q", conf.Completion.Provider)
	}
	if !conf.Auth.Disabled {
		t.Fatal("expected auth disabled")
	}
}

func TestLoadConfigurationEnvOverrides(t *testing.T) {
	t.Setenv("DASHBOARD_SERVER_ADDRESS", ":9999")
	t.Setenv("DASHBOARD_STORE_DRIVER", "memory")
	t.Setenv("API_BASE_URL", "http://predict.internal")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_TITLE", "Nexora")

	conf, err := LoadConfiguration(writeConfig(t, "server:\n  address: :7000\n"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Server.Address != ":9999" {
		t.Fatalf("expected env to override file, got %s", conf.Server.Address)
	}
	if conf.Store.Driver != "memory" {
		t.Fatalf("expected env store driver, got %s", conf.Store.Driver)
	}
	if conf.Predict.BaseURL != "http://predict.internal" {
		t.Fatalf("expected API_BASE_URL alias, got %s", conf.Predict.BaseURL)
	}
	if conf.Completion.APIKey != "or-key" || conf.Auth.JWTSecret != "secret" || conf.Completion.AppTitle != "Nexora" {
		t.Fatalf("expected aliases to apply, got %+v %+v", conf.Completion, conf.Auth)
	}
}

func TestPrefixedEnvWinsOverAlias(t *testing.T) {
	t.Setenv("DASHBOARD_PREDICT_BASEURL", "http://prefixed")
	t.Setenv("API_BASE_URL", "http://alias")

	conf, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Predict.BaseURL != "http://prefixed" {
		t.Fatalf("expected prefixed variable to win, got %s", conf.Predict.BaseURL)
	}
}

func TestLoadConfigurationInvalid(t *testing.T) {
	if _, err := LoadConfiguration(writeConfig(t, "server:\n  maxUploadSize: invalid\n")); err == nil {
		t.Fatal("expected error for invalid upload size")
	}
	if _, err := LoadConfiguration(writeConfig(t, "server: [unclosed\n")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DASHBOARD_TEST_ENV_FILE=loaded\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("DASHBOARD_TEST_ENV_FILE") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("DASHBOARD_TEST_ENV_FILE"); got != "loaded" {
		t.Fatalf("expected variable from env file, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Configuration {
		conf, err := LoadConfiguration("")
		if err != nil {
			t.Fatalf("LoadConfiguration() error = %v", err)
		}
		conf.Auth.JWTSecret = "secret"
		return conf
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected defaults with secret to validate, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Configuration)
		want   string
	}{
		{"bad driver", func(c *Configuration) { c.Store.Driver = "redis" }, "store driver"},
		{"bad provider", func(c *Configuration) { c.Completion.Provider = "anthropic" }, "completion provider"},
		{"bad log format", func(c *Configuration) { c.Logging.Format = "xml" }, "log format"},
		{"bad log level", func(c *Configuration) { c.Logging.Level = "trace" }, "log level"},
		{"bad key", func(c *Configuration) { c.Store.Key = "../x" }, "path separators"},
		{"postgres without url", func(c *Configuration) { c.Store.Driver = "postgres" }, "database URL"},
		{"missing secret", func(c *Configuration) { c.Auth.JWTSecret = "" }, "JWT secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := valid()
			tt.mutate(conf)
			err := conf.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	conf := valid()
	conf.Auth.JWTSecret = ""
	conf.Auth.Disabled = true
	if err := conf.Validate(); err != nil {
		t.Fatalf("expected disabled auth to need no secret, got %v", err)
	}
}

func TestWarnings(t *testing.T) {
	conf, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	warnings := strings.Join(conf.Warnings(), "\n")
	for _, want := range []string{"predict.baseURL", "completion.apiKey"} {
		if !strings.Contains(warnings, want) {
			t.Errorf("expected warning about %s, got %q", want, warnings)
		}
	}

	conf.Predict.BaseURL = "http://localhost:8000"
	conf.Completion.APIKey = "k"
	if len(conf.Warnings()) != 0 {
		t.Errorf("expected no warnings, got %v", conf.Warnings())
	}

	conf.Completion.Provider = constants.ProviderGemini
	if !strings.Contains(strings.Join(conf.Warnings(), "\n"), "geminiAPIKey") {
		t.Error("expected gemini key warning")
	}
}

func TestRedacted(t *testing.T) {
	conf, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	conf.Completion.APIKey = "sk-live"
	conf.Auth.JWTSecret = "top-secret"

	data, err := conf.Redacted()
	if err != nil {
		t.Fatalf("Redacted() error = %v", err)
	}
	if strings.Contains(string(data), "sk-live") || strings.Contains(string(data), "top-secret") {
		t.Fatalf("expected secrets to be masked, got:\n%s", data)
	}

	var decoded Configuration
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("redacted output is not YAML: %v", err)
	}
	if decoded.Completion.APIKey != "****" || decoded.Server.Address != conf.Server.Address {
		t.Fatalf("unexpected redacted config %+v", decoded)
	}
	if conf.Completion.APIKey != "sk-live" {
		t.Fatal("Redacted must not modify the configuration")
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":      constants.DefaultMaxUploadSizeBytes,
		"512":   512,
		"10b":   10,
		"256K":  256 * 1024,
		"2M":    2 * 1024 * 1024,
		"3 MB":  3 * 1024 * 1024,
		"1G":    1024 * 1024 * 1024,
		" 4kb ": 4 * 1024,
	}
	for input, want := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) error = %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseSize(%q) = %d, want %d", input, got, want)
		}
	}

	for _, input := range []string{"abc", "10T", "M", "99999999999G"} {
		if _, err := ParseSize(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
