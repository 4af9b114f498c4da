package config

import (
	"os"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	DatabaseURL string
	TablePrefix string
	// LogDir, when set, mirrors logs to rotating files in that directory
	LogDir      string
	MaxLogFiles int
	// LLM Configuration
	AnthropicAPIKey string
	Model           string
	TitleModel      string
	SystemPrompt    string
	// Retrieval
	WeaviateHost    string
	WeaviateScheme  string
	KnowledgeBaseID string
	// Translation
	TranslateURL       string
	TranslateAPIKey    string
	TranslationEnabled bool
	// Optional post-answer conflict report over retrieved evidence
	ConflictReportEnabled bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),
		LogDir:      getEnv("LOG_DIR", ""),
		MaxLogFiles: 10,
		// LLM Configuration
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		Model:           getEnv("MODEL", "claude-3-5-sonnet-latest"),
		TitleModel:      getEnv("TITLE_MODEL", "claude-3-5-haiku-latest"),
		SystemPrompt:    getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		// Retrieval
		WeaviateHost:    getEnv("WEAVIATE_HOST", "localhost:8090"),
		WeaviateScheme:  getEnv("WEAVIATE_SCHEME", "http"),
		KnowledgeBaseID: getEnv("KB_ID", "Passage"),
		// Translation
		TranslateURL:       getEnv("TRANSLATE_URL", ""),
		TranslateAPIKey:    getEnv("TRANSLATE_API_KEY", ""),
		TranslationEnabled: getEnv("TRANSLATION_ENABLED", "false") == "true",
		// Conflict report
		ConflictReportEnabled: getEnv("CONFLICT_REPORT_ENABLED", "false") == "true",
	}
}

// DefaultSystemPrompt frames the assistant as a campus advising helper
// that leans on its retrieval tool for specifics.
const DefaultSystemPrompt = "You are a helpful advising assistant for prospective and current students. " +
	"Answer questions about programs, courses, and careers. Use your search tool to ground " +
	"specific claims in the knowledge base, and say so when the knowledge base has nothing relevant."

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
