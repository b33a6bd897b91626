package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries every runtime setting of the service. Values come from the
// environment with sensible development defaults.
type Config struct {
	ServerAddr string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string

	JWTSecret string
	TokenTTL  time.Duration

	PageSize int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	AppURL       string
	FromEmail    string

	DataDir string
}

func LoadConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", ":8080")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASS", "")
	v.SetDefault("DB_NAME", "mediascore")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASS", "")
	v.SetDefault("JWT_SECRET", "insecure-dev-secret")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("PAGE_SIZE", 10)
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 1025)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("APP_URL", "http://localhost:8080")
	v.SetDefault("FROM_EMAIL", "no-reply@mediascore.local")
	v.SetDefault("DATA_DIR", "./static/data")

	return &Config{
		ServerAddr:    v.GetString("PORT"),
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetInt("DB_PORT"),
		DBUser:        v.GetString("DB_USER"),
		DBPassword:    v.GetString("DB_PASS"),
		DBName:        v.GetString("DB_NAME"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASS"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		TokenTTL:      v.GetDuration("TOKEN_TTL"),
		PageSize:      v.GetInt("PAGE_SIZE"),
		SMTPHost:      v.GetString("SMTP_HOST"),
		SMTPPort:      v.GetInt("SMTP_PORT"),
		SMTPUsername:  v.GetString("SMTP_USER"),
		SMTPPassword:  v.GetString("SMTP_PASS"),
		AppURL:        v.GetString("APP_URL"),
		FromEmail:     v.GetString("FROM_EMAIL"),
		DataDir:       v.GetString("DATA_DIR"),
	}
}

// DSN builds the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}
