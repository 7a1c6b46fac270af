// Package config loads the dashboard configuration from an optional YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"github.com/iwvelando/demand-dashboard/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Configuration holds all configuration for the dashboard.
type Configuration struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Store      StoreConfig      `yaml:"store"`
	Predict    PredictConfig    `yaml:"predict"`
	Completion CompletionConfig `yaml:"completion"`
	Auth       AuthConfig       `yaml:"auth"`
}

// ServerConfig defines runtime parameters for the HTTP server.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MaxUploadSize   string        `yaml:"maxUploadSize"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	uploadSizeBytes int64
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// StoreConfig selects and configures the forecast cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver"` // file, memory, postgres
	Dir         string `yaml:"dir"`
	Key         string `yaml:"key"`
	DatabaseURL string `yaml:"databaseURL,omitempty"`
}

// PredictConfig points at the prediction backend.
type PredictConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// CompletionConfig configures the language model provider.
type CompletionConfig struct {
	Provider     string        `yaml:"provider"` // openrouter, gemini
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"apiKey,omitempty"`
	Model        string        `yaml:"model"`
	SiteURL      string        `yaml:"siteURL,omitempty"`
	AppTitle     string        `yaml:"appTitle"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	GeminiAPIKey string        `yaml:"geminiAPIKey,omitempty"`
	GeminiModel  string        `yaml:"geminiModel"`
}

// AuthConfig configures the identity gate.
type AuthConfig struct {
	Disabled     bool   `yaml:"disabled"`
	JWTSecret    string `yaml:"jwtSecret,omitempty"`
	CookieName   string `yaml:"cookieName"`
	SignInURL    string `yaml:"signInURL,omitempty"`
	SecureCookie bool   `yaml:"secureCookie"`
}

// envAliases binds conventional variable names alongside the prefixed ones.
var envAliases = map[string]string{
	"predict.baseURL":         "API_BASE_URL",
	"completion.apiKey":       "OPENROUTER_API_KEY",
	"completion.siteURL":      "SITE_URL",
	"completion.appTitle":     "APP_TITLE",
	"completion.geminiAPIKey": "GEMINI_API_KEY",
	"store.databaseURL":       "DATABASE_URL",
	"auth.jwtSecret":          "JWT_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxUploadSize", strconv.FormatInt(constants.DefaultMaxUploadSizeBytes, 10))
	v.SetDefault("server.shutdownTimeout", constants.DefaultShutdownTimeout)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", constants.LogFormatJSON)
	v.SetDefault("logging.outputFile", "")

	v.SetDefault("store.driver", constants.StoreDriverFile)
	v.SetDefault("store.dir", constants.DefaultCacheDir)
	v.SetDefault("store.key", constants.DefaultCacheKey)
	v.SetDefault("store.databaseURL", "")

	v.SetDefault("predict.baseURL", "")
	v.SetDefault("predict.timeout", "0s")

	v.SetDefault("completion.provider", constants.ProviderOpenRouter)
	v.SetDefault("completion.url", constants.DefaultCompletionURL)
	v.SetDefault("completion.apiKey", "")
	v.SetDefault("completion.model", constants.DefaultCompletionModel)
	v.SetDefault("completion.siteURL", "")
	v.SetDefault("completion.appTitle", constants.DefaultAppTitle)
	v.SetDefault("completion.timeout", "0s")
	v.SetDefault("completion.geminiAPIKey", "")
	v.SetDefault("completion.geminiModel", constants.DefaultGeminiModel)

	v.SetDefault("auth.disabled", false)
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.cookieName", constants.DefaultSessionCookie)
	v.SetDefault("auth.signInURL", "")
	v.SetDefault("auth.secureCookie", false)
}

// LoadEnvFile reads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadConfiguration reads the YAML file at configPath, if it exists, and
// applies environment overrides. Variables use the DASHBOARD_ prefix with
// dots replaced by underscores (DASHBOARD_STORE_DRIVER), and the aliases in
// envAliases are honored as well.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envName := constants.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, alias); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file, %s", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	if err := configuration.normalize(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

func (c *Configuration) normalize() error {
	if c.Server.Address == "" {
		c.Server.Address = constants.DefaultServerAddress
	}
	size, err := ParseSize(c.Server.MaxUploadSize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.Server.uploadSizeBytes = size

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Completion.Provider = strings.ToLower(strings.TrimSpace(c.Completion.Provider))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Predict.BaseURL = strings.TrimRight(strings.TrimSpace(c.Predict.BaseURL), "/")
	return nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (s *ServerConfig) UploadSizeBytes() int64 {
	if s.uploadSizeBytes <= 0 {
		return constants.DefaultMaxUploadSizeBytes
	}
	return s.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured upload size.
func (s *ServerConfig) SetUploadSizeBytes(size int64) {
	if size > 0 {
		s.uploadSizeBytes = size
		s.MaxUploadSize = strconv.FormatInt(size, 10)
	}
}

// Validate reports settings the dashboard cannot start with.
func (c *Configuration) Validate() error {
	var errs []error
	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateLogFormat(c.Logging.Format); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateStoreDriver(c.Store.Driver); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateCacheKey(c.Store.Key); err != nil {
		errs = append(errs, err)
	}
	if c.Store.Driver == constants.StoreDriverPostgres && c.Store.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("store driver %s requires a database URL", constants.StoreDriverPostgres))
	}
	if err := validation.ValidateProvider(c.Completion.Provider); err != nil {
		errs = append(errs, err)
	}
	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("auth requires a JWT secret unless auth.disabled is set"))
	}
	return errors.Join(errs...)
}

// Warnings reports settings that leave a feature degraded.
func (c *Configuration) Warnings() []string {
	var warnings []string
	if c.Predict.BaseURL == "" {
		warnings = append(warnings, "predict.baseURL is not set; uploads will fail")
	}
	switch c.Completion.Provider {
	case constants.ProviderGemini:
		if c.Completion.GeminiAPIKey == "" {
			warnings = append(warnings, "completion.geminiAPIKey is not set; recommendations and chat will show a placeholder")
		}
	default:
		if c.Completion.APIKey == "" {
			warnings = append(warnings, "completion.apiKey is not set; recommendations and chat will show a placeholder")
		}
	}
	if c.Auth.Disabled {
		warnings = append(warnings, "auth is disabled; every request is treated as signed in")
	}
	return warnings
}

// Redacted returns the configuration as YAML with credentials masked.
func (c *Configuration) Redacted() ([]byte, error) {
	masked := *c
	masked.Completion.APIKey = mask(masked.Completion.APIKey)
	masked.Completion.GeminiAPIKey = mask(masked.Completion.GeminiAPIKey)
	masked.Auth.JWTSecret = mask(masked.Auth.JWTSecret)
	masked.Store.DatabaseURL = mask(masked.Store.DatabaseURL)
	return yaml.Marshal(&masked)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 || (n != 0 && result/n != multiplier) {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
