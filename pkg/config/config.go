package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	CORS           CORSConfig
	Log            LogConfig
	Storage        StorageConfig
	Equipment      EquipmentConfig
	ServiceHistory ServiceHistoryConfig
	Thumbnails     ThumbnailConfig
	Features       FeatureConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig controls zap output. File enables a rotating JSON file sink.
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// StorageConfig selects where uploaded images live.
type StorageConfig struct {
	Driver         string
	LocalDir       string
	SigningSecret  string
	URLTTL         time.Duration
	MaxUploadBytes int64
	S3             S3Config
}

// S3Config is used when Storage.Driver is "s3". Endpoint targets S3-compatible services.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// EquipmentConfig tunes equipment listings.
type EquipmentConfig struct {
	PageSize     int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ServiceHistoryConfig tunes service history listings.
type ServiceHistoryConfig struct {
	PageSize int
}

// ThumbnailConfig controls background thumbnail generation.
type ThumbnailConfig struct {
	Enabled bool
	Size    int
	Workers int
	Retries int
}

// FeatureConfig toggles optional HTTP surfaces.
type FeatureConfig struct {
	Metrics  bool
	Swagger  bool
	VisitLog bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("APP_ENV")
	cfg.Port = v.GetInt("APP_PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("JWT_REFRESH_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		Compress:   v.GetBool("LOG_COMPRESS"),
	}

	maxUpload := v.GetInt64("UPLOAD_MAX_BYTES")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:         strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:       v.GetString("STORAGE_LOCAL_DIR"),
		SigningSecret:  v.GetString("STORAGE_SIGNING_SECRET"),
		URLTTL:         parseDuration(v.GetString("STORAGE_URL_TTL"), time.Hour),
		MaxUploadBytes: maxUpload,
		S3: S3Config{
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		},
	}

	cfg.Equipment = EquipmentConfig{
		PageSize:     positiveOr(v.GetInt("EQUIPMENT_PAGE_SIZE"), 10),
		CacheEnabled: v.GetBool("EQUIPMENT_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("EQUIPMENT_CACHE_TTL"), 2*time.Minute),
	}

	cfg.ServiceHistory = ServiceHistoryConfig{
		PageSize: positiveOr(v.GetInt("SERVICE_HISTORY_PAGE_SIZE"), 10),
	}

	cfg.Thumbnails = ThumbnailConfig{
		Enabled: v.GetBool("THUMBNAIL_ENABLED"),
		Size:    positiveOr(v.GetInt("THUMBNAIL_SIZE"), 300),
		Workers: positiveOr(v.GetInt("THUMBNAIL_WORKERS"), 1),
		Retries: v.GetInt("THUMBNAIL_RETRIES"),
	}

	cfg.Features = FeatureConfig{
		Metrics:  v.GetBool("METRICS_ENABLED"),
		Swagger:  v.GetBool("SWAGGER_ENABLED"),
		VisitLog: v.GetBool("VISIT_LOG_ENABLED"),
	}

	if cfg.Env == EnvProduction && cfg.JWT.Secret == defaultJWTSecret {
		return nil, errors.New("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

const defaultJWTSecret = "dev_secret"

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "office_inventory")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_REFRESH_EXPIRATION", "168h")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("LOG_COMPRESS", true)

	v.SetDefault("STORAGE_DRIVER", StorageDriverLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./media/images")
	v.SetDefault("STORAGE_SIGNING_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_URL_TTL", "1h")
	v.SetDefault("UPLOAD_MAX_BYTES", 10*1024*1024)
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")

	v.SetDefault("EQUIPMENT_PAGE_SIZE", 10)
	v.SetDefault("EQUIPMENT_CACHE_ENABLED", false)
	v.SetDefault("EQUIPMENT_CACHE_TTL", "2m")
	v.SetDefault("SERVICE_HISTORY_PAGE_SIZE", 10)

	v.SetDefault("THUMBNAIL_ENABLED", true)
	v.SetDefault("THUMBNAIL_SIZE", 300)
	v.SetDefault("THUMBNAIL_WORKERS", 1)
	v.SetDefault("THUMBNAIL_RETRIES", 2)

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("SWAGGER_ENABLED", true)
	v.SetDefault("VISIT_LOG_ENABLED", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
