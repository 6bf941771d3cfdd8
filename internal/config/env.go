package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	// Object storage. When AWS credentials are absent the server falls
	// back to local-disk storage under UploadDir.
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	UploadDir    string

	// Gemini. An empty API key selects the mock completion gateway.
	AIAPIKey string
	GenModel string

	AnswerLanguage string
	CorsOrigin     string

	MaxFileSizeMB    int
	AllowedFileTypes []string
	MaxChunkChars    int
	IngestWorkers    int
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8000"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "waraqa-docs"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),

		AIAPIKey: getEnv("GEMINI_API_KEY", ""),
		GenModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),

		AnswerLanguage: getEnv("ANSWER_LANGUAGE", "Arabic"),
		CorsOrigin:     getEnv("CORS_ORIGIN", "http://localhost:5173"),

		MaxFileSizeMB:    getEnvInt("MAX_FILE_SIZE_MB", 50),
		AllowedFileTypes: strings.Split(getEnv("ALLOWED_FILE_TYPES", ".pdf,.docx,.doc,.txt,.md"), ","),
		MaxChunkChars:    getEnvInt("MAX_CHUNK_CHARS", 1000),
		IngestWorkers:    getEnvInt("INGEST_WORKERS", 2),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	if cfg.AIAPIKey == "" {
		log.Println("WARN: GEMINI_API_KEY is not set, AI responses will be mocked")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
