package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	HTTPServer HTTPServerConfig
	Pipeline   PipelineConfig
	Ingest     IngestConfig
	Cache      CacheConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers           []string
	TopicObservations string
	GroupID           string
	NumPartitions     int
}

type HTTPServerConfig struct {
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// PipelineConfig holds the spatial resolutions (degrees) used when
// building each product level.
type PipelineConfig struct {
	DailyResolution    float64
	MonthlyResolution  float64
	YearlyResolution   float64
	BaselineResolution float64
}

type IngestConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

type CacheConfig struct {
	Enabled         bool
	TemperatureTTL  time.Duration
	AnomalyTTL      time.Duration
	HeatwaveTTL     time.Duration
	AvailabilityTTL time.Duration
	SummaryTTL      time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "ocean_user"),
			Password: getEnv("DB_PASSWORD", "ocean_pass"),
			DBName:   getEnv("DB_NAME", "ocean_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:           strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicObservations: getEnv("KAFKA_TOPIC_OBSERVATIONS", "sst.observations.raw"),
			GroupID:           getEnv("KAFKA_GROUP_ID", "sst-ingester"),
			NumPartitions:     getEnvAsInt("KAFKA_NUM_PARTITIONS", 3),
		},
		HTTPServer: HTTPServerConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8080),
			AllowedOrigins:  strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Pipeline: PipelineConfig{
			DailyResolution:    getEnvAsFloat("PIPELINE_DAILY_RESOLUTION", 1.0),
			MonthlyResolution:  getEnvAsFloat("PIPELINE_MONTHLY_RESOLUTION", 1.0),
			YearlyResolution:   getEnvAsFloat("PIPELINE_YEARLY_RESOLUTION", 2.0),
			BaselineResolution: getEnvAsFloat("PIPELINE_BASELINE_RESOLUTION", 2.0),
		},
		Ingest: IngestConfig{
			BatchSize:     getEnvAsInt("INGEST_BATCH_SIZE", 500),
			FlushInterval: getEnvAsDuration("INGEST_FLUSH_INTERVAL", 5*time.Second),
		},
		Cache: CacheConfig{
			Enabled:         getEnvAsBool("CACHE_ENABLED", true),
			TemperatureTTL:  getEnvAsDuration("CACHE_TEMPERATURE_TTL", time.Hour),
			AnomalyTTL:      getEnvAsDuration("CACHE_ANOMALY_TTL", time.Hour),
			HeatwaveTTL:     getEnvAsDuration("CACHE_HEATWAVE_TTL", 2*time.Hour),
			AvailabilityTTL: getEnvAsDuration("CACHE_AVAILABILITY_TTL", 6*time.Hour),
			SummaryTTL:      getEnvAsDuration("CACHE_SUMMARY_TTL", 30*time.Minute),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
