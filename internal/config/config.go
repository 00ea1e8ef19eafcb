package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

type Config struct {
	Env      string
	Server   ServerConfig
	AI       AIConfig
	Retry    RetryConfig
	Audit    AuditConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type AIConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	SystemPrompt       string
	Timeout            time.Duration
	Temperature        float64
	MaxOutputTokens    int
	RateLimitPerMinute int
	RateLimitBurst     int
}

// RetryConfig описывает политику повторов вызова модели.
type RetryConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxAttempts  int
	MaxDelay     time.Duration
}

type AuditConfig struct {
	Enabled bool
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

const defaultSystemPrompt = "You are a helpful financial assistant."

// Load загружает конфигурацию сервиса из окружения и .env.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	serverPort, err := parseIntEnv("SERVER_PORT", 8001)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return cfg, err
	}

	// Ответ модели с ретраями может занять заметно больше обычного запроса.
	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 90*time.Second)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.Server = ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         serverPort,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	aiTimeout, err := parseDurationEnv("AI_TIMEOUT", 20*time.Second)
	if err != nil {
		return cfg, err
	}

	aiTemperature, err := parseFloatEnv("AI_TEMPERATURE", 0.5)
	if err != nil {
		return cfg, err
	}

	aiMaxOutputTokens, err := parseIntEnv("AI_MAX_OUTPUT_TOKENS", 1000)
	if err != nil {
		return cfg, err
	}

	aiRateLimitPerMinute, err := parseIntEnv("AI_RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return cfg, err
	}

	aiRateLimitBurst, err := parseIntEnv("AI_RATE_LIMIT_BURST", 10)
	if err != nil {
		return cfg, err
	}

	provider := strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", ProviderOpenAI)))
	baseURL, model := providerDefaults(provider)

	cfg.AI = AIConfig{
		Provider:           provider,
		APIKey:             resolveAPIKey(provider),
		BaseURL:            getEnv("AI_BASE_URL", baseURL),
		Model:              getEnv("AI_MODEL", getEnv("OPENAI_MODEL", model)),
		SystemPrompt:       getEnv("AI_SYSTEM_PROMPT", defaultSystemPrompt),
		Timeout:            aiTimeout,
		Temperature:        aiTemperature,
		MaxOutputTokens:    aiMaxOutputTokens,
		RateLimitPerMinute: aiRateLimitPerMinute,
		RateLimitBurst:     aiRateLimitBurst,
	}

	initialDelay, err := parseDurationEnv("AI_RETRY_INITIAL_DELAY", time.Second)
	if err != nil {
		return cfg, err
	}

	multiplier, err := parseFloatEnv("AI_RETRY_MULTIPLIER", 2)
	if err != nil {
		return cfg, err
	}

	maxAttempts, err := parseIntEnv("AI_RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return cfg, err
	}

	maxDelay, err := parseDurationEnv("AI_RETRY_MAX_DELAY", time.Minute)
	if err != nil {
		return cfg, err
	}

	cfg.Retry = RetryConfig{
		InitialDelay: initialDelay,
		Multiplier:   multiplier,
		MaxAttempts:  maxAttempts,
		MaxDelay:     maxDelay,
	}

	auditEnabled, err := parseBoolEnv("AUDIT_ENABLED", false)
	if err != nil {
		return cfg, err
	}
	cfg.Audit = AuditConfig{Enabled: auditEnabled}

	dbPort, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return cfg, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 5)
	if err != nil {
		return cfg, err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return cfg, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return cfg, err
	}

	cfg.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "coinforloop"),
		Password:        getEnv("DB_PASSWORD", "coinforloop"),
		Name:            getEnv("DB_NAME", "coinforloop"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DSN возвращает строку подключения к базе данных аудита.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	switch c.AI.Provider {
	case ProviderOpenAI, ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("AI_PROVIDER must be one of openai, groq, gemini: got %q", c.AI.Provider)
	}

	if strings.TrimSpace(c.AI.Model) == "" {
		return fmt.Errorf("AI_MODEL is required")
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be within [0, 2]")
	}

	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("AI_RETRY_MULTIPLIER must be at least 1")
	}

	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("AI_RETRY_MAX_DELAY must not be less than AI_RETRY_INITIAL_DELAY")
	}

	if c.Audit.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required when AUDIT_ENABLED is set")
		}

		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required when AUDIT_ENABLED is set")
		}

		if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
			return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
		}
	}

	return nil
}

func providerDefaults(provider string) (string, string) {
	switch provider {
	case ProviderGroq:
		return "https://api.groq.com/openai/v1", "llama-3.1-8b-instant"
	case ProviderGemini:
		return "", "gemini-2.0-flash"
	default:
		return "https://api.openai.com/v1", "gpt-4o-mini"
	}
}

func resolveAPIKey(provider string) string {
	if key := getEnv("AI_API_KEY", ""); key != "" {
		return key
	}

	switch provider {
	case ProviderGemini:
		return getEnv("GEMINI_API_KEY", "")
	case ProviderGroq:
		return getEnv("GROQ_API_KEY", "")
	default:
		return getEnv("OPENAI_API_KEY", "")
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
