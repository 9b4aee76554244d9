package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Groq model tiers.
const (
	ModelFast     = "llama3-8b-8192"
	ModelBalanced = "llama3-70b-8192"
	ModelSmart    = "mixtral-8x7b-32768"
)

type Config struct {
	Addr           string `yaml:"addr"`
	GroqAPIKey     string `yaml:"groq_api_key"`
	GroqModel      string `yaml:"groq_model"`
	LogDir         string `yaml:"log_dir"`
	StorageBackend string `yaml:"storage_backend"` // file | sqlite | postgres
	StoragePath    string `yaml:"storage_path"`
	DBUser         string `yaml:"db_user"`
	DBPassword     string `yaml:"db_password"`
	DBHost         string `yaml:"db_host"`
	DBPort         string `yaml:"db_port"`
	DBName         string `yaml:"db_name"`
}

// LoadConfig layers defaults, an optional config.yaml, then environment
// variables (a .env file is honored when present).
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		// no .env file; system environment only
	}

	cfg := Config{
		Addr:           ":8000",
		GroqModel:      ModelBalanced,
		LogDir:         "./logs",
		StorageBackend: "file",
		StoragePath:    "./data/koreanChatHistory.json",
	}
	if raw, err := os.ReadFile("config.yaml"); err == nil {
		// config.yaml is optional; a broken one is ignored rather than fatal
		_ = yaml.Unmarshal(raw, &cfg)
	}

	cfg.Addr = getEnv("ADDR", cfg.Addr)
	cfg.GroqAPIKey = getEnv("GROQ_API_KEY", cfg.GroqAPIKey)
	cfg.GroqModel = getEnv("GROQ_MODEL", cfg.GroqModel)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.StorageBackend = getEnv("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.StoragePath = getEnv("STORAGE_PATH", cfg.StoragePath)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	return cfg
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}
