package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string // "development", "staging", "production"

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Security/JWT
	JWTSecret string // base64-encoded HS256 key, shared with the auth service

	// Object storage
	StorageBucket    string
	StorageBaseURL   string
	StorageKeyPath   string
	AttachmentPrefix string
	UploadMaxBytes   int64
	UploadTimeout    time.Duration

	// Push gateway
	PushEndpoint string
	PushTimeout  time.Duration
}

func LoadConfig() Config {
	_ = godotenv.Load()

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "chat")
	dbURL := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		dbHost,
		dbUser,
		dbPassword,
		dbName,
		dbPort,
	)

	return Config{
		Port:        getEnv("PORT", "4000"),
		Environment: getEnv("ENVIRONMENT", "production"),

		DatabaseURL: dbURL,
		DBHost:      dbHost,
		DBPort:      dbPort,
		DBUser:      dbUser,
		DBPassword:  dbPassword,
		DBName:      dbName,

		JWTSecret: getEnv("JWT_SECRET", ""),

		StorageBucket:    getEnv("STORAGE_BUCKET", ""),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", ""),
		StorageKeyPath:   getEnv("STORAGE_KEY_PATH", "./storage-key.json"),
		AttachmentPrefix: getEnv("ATTACHMENT_PREFIX", "chats"),
		UploadMaxBytes:   mustParseInt64(getEnv("UPLOAD_MAX_BYTES", strconv.Itoa(10<<20))),
		UploadTimeout:    mustParseDuration(getEnv("UPLOAD_TIMEOUT", "30s")),

		PushEndpoint: getEnv("PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send"),
		PushTimeout:  mustParseDuration(getEnv("PUSH_TIMEOUT", "10s")),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mustParseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("config: invalid duration %q: %v", s, err)
	}
	return d
}

func mustParseInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Fatalf("config: invalid integer %q: %v", s, err)
	}
	return n
}
