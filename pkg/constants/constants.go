// Package constants provides shared constants for the demand-dashboard application.
package constants

// DateLayout is the date format used by the prediction backend for series
// entries.
const DateLayout = "2006-01-02"

// Chart presentation thresholds
const (
	// CoarseTickThreshold is the series length above which axis ticks switch
	// to a month/year label
	CoarseTickThreshold = 365

	// ZoomThreshold is the series length above which the chart shows a zoom slider
	ZoomThreshold = 60
)

// Dashboard defaults
const (
	// FallbackAccuracy is the accuracy shown when the backend does not report
	// a usable model_accuracy
	FallbackAccuracy = 88.0

	// Unavailable is the display value of a metric that is absent or non-numeric
	Unavailable = "N/A"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "dashboard.yaml"

	// EnvPrefix is the prefix of environment variables read by viper
	EnvPrefix = "DASHBOARD"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for demand CSVs (10 MB)
	DefaultMaxUploadSizeBytes int64 = 10 * 1024 * 1024
)

// Forecast cache defaults
const (
	// DefaultCacheKey is the key of the single forecast slot
	DefaultCacheKey = "nexora_forecast_data"

	// DefaultCacheDir is the directory holding the file-backed slot
	DefaultCacheDir = "data"

	// StoreDriverFile keeps the slot in a JSON file
	StoreDriverFile = "file"

	// StoreDriverMemory keeps the slot in process memory
	StoreDriverMemory = "memory"

	// StoreDriverPostgres keeps the slot in a Postgres row
	StoreDriverPostgres = "postgres"
)

// Completion provider defaults
const (
	// ProviderOpenRouter selects the OpenRouter chat-completions endpoint
	ProviderOpenRouter = "openrouter"

	// ProviderGemini selects the Gemini API
	ProviderGemini = "gemini"

	// DefaultCompletionURL is the OpenRouter chat-completions endpoint
	DefaultCompletionURL = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultCompletionModel is the model requested from OpenRouter
	DefaultCompletionModel = "deepseek/deepseek-chat-v3.1:free"

	// DefaultGeminiModel is the model requested from Gemini
	DefaultGeminiModel = "gemini-1.5-pro-latest"

	// DefaultAppTitle is sent as X-Title when no title is configured
	DefaultAppTitle = "AI forecast analyzer"
)

// Identity defaults
const (
	// DefaultSessionCookie is the cookie carrying the identity service access token
	DefaultSessionCookie = "sb-access-token"

	// AuthPath is the local auth entry point unauthenticated users are sent to
	AuthPath = "/auth"
)

// Logging format constants
const (
	// LogFormatJSON is the production log encoding
	LogFormatJSON = "json"

	// LogFormatConsole is the development log encoding
	LogFormatConsole = "console"
)

// Runtime defaults
const (
	// DefaultShutdownTimeout is how long the server waits for in-flight requests on exit
	DefaultShutdownTimeout = "10s"

	// DefaultEnvFile is the dotenv file read before the environment
	DefaultEnvFile = ".env"
)
