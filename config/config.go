package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting read from the environment (and .env when present).
type Config struct {
	Port string

	DBDriver    string // mysql | postgres | leveldb
	DBUser      string
	DBPassword  string
	DBHost      string
	DBPort      string
	DBName      string
	DatabaseURL string
	LevelDBPath string

	OpenAIKey      string
	OpenAIBaseURL  string
	PrimaryModel   string
	FallbackModel  string
	Temperature    float32
	MaxTokens      int
	LLMTimeout     time.Duration
	HistoryWindow  int
	SessionSecret  string
	SessionTTL     time.Duration
	ResetCodeTTL   time.Duration
	UploadMaxBytes int64
	CORSOrigins    []string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Load reads .env (if any) and the process environment. A missing .env is not an error.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env loaded: %v", err)
	}

	cfg := Config{
		Port:           str("PORT", "8080"),
		DBDriver:       strings.ToLower(str("DB_DRIVER", "leveldb")),
		DBUser:         str("DB_USER", ""),
		DBPassword:     str("DB_PASSWORD", ""),
		DBHost:         str("DB_HOST", "127.0.0.1"),
		DBPort:         str("DB_PORT", "3306"),
		DBName:         str("DB_NAME", "helpmypet"),
		DatabaseURL:    str("DATABASE_URL", ""),
		LevelDBPath:    str("LEVELDB_PATH", "data/helpmypet.db"),
		OpenAIKey:      str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  str("OPENAI_BASE_URL", ""),
		PrimaryModel:   str("OPENAI_MODEL_PRIMARY", "gpt-4-turbo-preview"),
		FallbackModel:  str("OPENAI_MODEL_FALLBACK", "gpt-4"),
		Temperature:    float32(num("OPENAI_TEMPERATURE", 0.7)),
		MaxTokens:      integer("OPENAI_MAX_TOKENS", 2000),
		LLMTimeout:     time.Duration(integer("LLM_TIMEOUT_SECONDS", 45)) * time.Second,
		HistoryWindow:  integer("HISTORY_WINDOW", 10),
		SessionSecret:  str("SESSION_SECRET", "dev-insecure-secret"),
		SessionTTL:     time.Duration(integer("SESSION_HOURS", 24)) * time.Hour,
		ResetCodeTTL:   time.Duration(integer("RESET_CODE_MINUTES", 15)) * time.Minute,
		UploadMaxBytes: int64(integer("UPLOAD_MAX_MB", 5)) << 20,
		CORSOrigins:    list("CORS_ORIGINS", "*"),
		SMTPHost:       str("SMTP_HOST", ""),
		SMTPPort:       str("SMTP_PORT", ""),
		SMTPUser:       str("SMTP_USER", ""),
		SMTPPass:       str("SMTP_PASS", ""),
	}
	cfg.SMTPFrom = str("SMTP_FROM", cfg.SMTPUser)
	if cfg.OpenAIKey == "" {
		log.Printf("[config] OPENAI_API_KEY is empty; LLM calls will fail")
	}
	return cfg
}

// sanitizeEnv trims whitespace and one pair of matching surrounding quotes.
func sanitizeEnv(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

func str(key, def string) string {
	if v := sanitizeEnv(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) int {
	v := sanitizeEnv(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func num(key string, def float64) float64 {
	v := sanitizeEnv(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func list(key, def string) []string {
	raw := str(key, def)
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
