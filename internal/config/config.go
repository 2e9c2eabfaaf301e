package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	AppEnv        string
	IsProduction  bool
	IsDevelopment bool

	ServerPort string
	CorsOrigin string

	DbHost     string
	DbPort     string
	DbUser     string
	DbPassword string
	DbName     string
	DbSSLMode  string

	JwtSecret          string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Issuer             string

	DefaultAdminEmail    string
	DefaultAdminPassword string
	DefaultAdminName     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string
	UploadDir      string

	KafkaBrokers []string
	KafkaTopic   string

	OtelExporter string

	ProjectRoles = []string{"admin", "member"}
)

func setDefaults() {
	viper.SetDefault("app_env", "development")
	viper.SetDefault("server_port", "8080")
	viper.SetDefault("cors_origin", "http://localhost:5173")

	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", "5432")
	viper.SetDefault("db_user", "postgres")
	viper.SetDefault("db_password", "password")
	viper.SetDefault("db_name", "zeera")
	viper.SetDefault("db_sslmode", "disable")

	viper.SetDefault("jwt_secret", "defaultsecret")
	viper.SetDefault("refresh_token_secret", "defaultrefreshsecret")
	viper.SetDefault("access_token_ttl", "15m")
	viper.SetDefault("refresh_token_ttl", "168h")
	viper.SetDefault("issuer", "zeera")

	viper.SetDefault("default_admin_email", "")
	viper.SetDefault("default_admin_password", "")
	viper.SetDefault("default_admin_name", "Administrator")

	viper.SetDefault("minio_endpoint", "")
	viper.SetDefault("minio_access_key", "minioadmin")
	viper.SetDefault("minio_secret_key", "minioadmin")
	viper.SetDefault("minio_bucket", "zeera-attachments")
	viper.SetDefault("minio_use_ssl", false)
	viper.SetDefault("upload_dir", "uploads")

	viper.SetDefault("kafka_brokers", "")
	viper.SetDefault("kafka_topic", "issue-activity")

	viper.SetDefault("otel_exporter", "none")
}

// LoadConfig reads .env (if present) and the environment into the package variables.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	setDefaults()
	viper.AutomaticEnv()

	AppEnv = strings.ToLower(viper.GetString("app_env"))
	IsProduction = AppEnv == "production"
	IsDevelopment = AppEnv == "development"

	ServerPort = viper.GetString("server_port")
	CorsOrigin = viper.GetString("cors_origin")

	DbHost = viper.GetString("db_host")
	DbPort = viper.GetString("db_port")
	DbUser = viper.GetString("db_user")
	DbPassword = viper.GetString("db_password")
	DbName = viper.GetString("db_name")
	DbSSLMode = viper.GetString("db_sslmode")

	JwtSecret = viper.GetString("jwt_secret")
	RefreshTokenSecret = viper.GetString("refresh_token_secret")
	AccessTokenTTL = viper.GetDuration("access_token_ttl")
	RefreshTokenTTL = viper.GetDuration("refresh_token_ttl")
	Issuer = viper.GetString("issuer")

	DefaultAdminEmail = viper.GetString("default_admin_email")
	DefaultAdminPassword = viper.GetString("default_admin_password")
	DefaultAdminName = viper.GetString("default_admin_name")

	MinioEndpoint = viper.GetString("minio_endpoint")
	MinioAccessKey = viper.GetString("minio_access_key")
	MinioSecretKey = viper.GetString("minio_secret_key")
	MinioBucket = viper.GetString("minio_bucket")
	MinioUseSSL = viper.GetBool("minio_use_ssl")
	UploadDir = viper.GetString("upload_dir")

	KafkaBrokers = ParseList(viper.GetString("kafka_brokers"))
	KafkaTopic = viper.GetString("kafka_topic")

	OtelExporter = viper.GetString("otel_exporter")

	InitLogger()
}

// InitLogger installs the process-wide slog handler.
func InitLogger() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if IsDevelopment {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if IsProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ParseList splits a comma separated value, dropping blanks.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
