package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Matcher   MatcherConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig is injected into the job tracker at construction; there is
// no global folder state.
type StorageConfig struct {
	UploadDir      string
	OutputDir      string
	RetentionHours int
	SweepMinutes   int
}

type WorkerConfig struct {
	Concurrency         int
	StageTimeoutSeconds int
}

type MatcherConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type RateLimitConfig struct {
	MasterPerHour int
	StatusPerMin  int
}

func Load() (*Config, error) {
	readSecret("REDIS_PASSWORD")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("storage.upload_dir", "STORAGE_UPLOAD_DIR")
	_ = viper.BindEnv("storage.output_dir", "STORAGE_OUTPUT_DIR")
	_ = viper.BindEnv("storage.retention_hours", "STORAGE_RETENTION_HOURS")
	_ = viper.BindEnv("storage.sweep_minutes", "STORAGE_SWEEP_MINUTES")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = viper.BindEnv("worker.stage_timeout_seconds", "WORKER_STAGE_TIMEOUT")
	_ = viper.BindEnv("matcher.service_url", "MATCHER_SERVICE_URL")
	_ = viper.BindEnv("matcher.timeout", "MATCHER_TIMEOUT")
	_ = viper.BindEnv("ratelimit.master_per_hour", "RATELIMIT_MASTER_PER_HOUR")
	_ = viper.BindEnv("ratelimit.status_per_min", "RATELIMIT_STATUS_PER_MIN")

	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("storage.upload_dir", "uploads")
	viper.SetDefault("storage.output_dir", "processed")
	viper.SetDefault("storage.retention_hours", 24)
	viper.SetDefault("storage.sweep_minutes", 30)
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("worker.stage_timeout_seconds", 120)
	viper.SetDefault("matcher.service_url", "")
	viper.SetDefault("matcher.timeout", 120)
	viper.SetDefault("ratelimit.master_per_hour", 20)
	viper.SetDefault("ratelimit.status_per_min", 120)

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			UploadDir:      viper.GetString("storage.upload_dir"),
			OutputDir:      viper.GetString("storage.output_dir"),
			RetentionHours: viper.GetInt("storage.retention_hours"),
			SweepMinutes:   viper.GetInt("storage.sweep_minutes"),
		},
		Worker: WorkerConfig{
			Concurrency:         viper.GetInt("worker.concurrency"),
			StageTimeoutSeconds: viper.GetInt("worker.stage_timeout_seconds"),
		},
		Matcher: MatcherConfig{
			ServiceURL: viper.GetString("matcher.service_url"),
			Timeout:    viper.GetInt("matcher.timeout"),
		},
		RateLimit: RateLimitConfig{
			MasterPerHour: viper.GetInt("ratelimit.master_per_hour"),
			StatusPerMin:  viper.GetInt("ratelimit.status_per_min"),
		},
	}

	return cfg, nil
}
