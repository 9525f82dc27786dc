package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetPort returns the HTTP listen port, defaulting to 8080
func GetPort() string {
	return getString("PORT", "8080")
}

// GetLogMode returns "production" or "development" (the default)
func GetLogMode() string {
	return getString("LOG_MODE", "development")
}

// GetGenerationProvider returns which generator backs the wizard: "http" (default) or "gemini"
func GetGenerationProvider() string {
	return strings.ToLower(getString("GENERATION_PROVIDER", "http"))
}

// GetGenerationURL returns the chat-completion endpoint used by the http provider
func GetGenerationURL() string {
	return getString("GENERATION_URL", "https://api.openai.com/v1/chat/completions")
}

// GetGenerationAPIKey returns the bearer token sent to the generation endpoint
func GetGenerationAPIKey() string {
	return os.Getenv("GENERATION_API_KEY")
}

// GetGenerationModel returns the model name sent with each request; empty omits it
func GetGenerationModel() string {
	return os.Getenv("GENERATION_MODEL")
}

// GetGenerationTimeout bounds every generation call. Defaults to 60 seconds
func GetGenerationTimeout() time.Duration {
	return time.Duration(getInt("GENERATION_TIMEOUT_SECONDS", 60)) * time.Second
}

// GetGenerationMaxRetries returns how often a 429/5xx generation response is retried
func GetGenerationMaxRetries() int {
	return getInt("GENERATION_MAX_RETRIES", 2)
}

// GetGeminiModel returns the Gemini model to use from environment variable
// Defaults to "gemini-2.5-flash" if not set
func GetGeminiModel() string {
	return getString("GEMINI_MODEL", "gemini-2.5-flash")
}

// GetGeminiAPIKey returns the Gemini API key from environment variable
func GetGeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// GetContextSourceURL returns the endpoint listing student question/answer context
func GetContextSourceURL() string {
	return os.Getenv("CONTEXT_SOURCE_URL")
}

// GetInstructionSourceURL returns the endpoint listing per-course prompt instructions
func GetInstructionSourceURL() string {
	return os.Getenv("INSTRUCTION_SOURCE_URL")
}

// GetSourceAPIKey returns the bearer token for the context and instruction sources
func GetSourceAPIKey() string {
	return os.Getenv("SOURCE_API_KEY")
}

// GetInstructionCacheTTL returns how long fetched instructions are reused
func GetInstructionCacheTTL() time.Duration {
	return time.Duration(getInt("INSTRUCTION_CACHE_TTL_SECONDS", 300)) * time.Second
}

// GetMongoDBURI returns the MongoDB connection URI from environment variable
func GetMongoDBURI() string {
	return os.Getenv("MONGODB_URI")
}

// GetMongoDBDatabase returns the database name, defaulting to "coursewizard"
func GetMongoDBDatabase() string {
	return getString("MONGODB_DATABASE", "coursewizard")
}

// GetAllowedOrigins returns the allowed CORS origins from environment variable
func GetAllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getString(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return i
}
