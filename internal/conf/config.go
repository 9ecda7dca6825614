package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	Log      LogConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
	Quota    QuotaConfig
}

type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"` // bytes, request body ceiling
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicEndpoint is the host used when constructing file access URLs.
	// Falls back to Endpoint when empty.
	PublicEndpoint string `mapstructure:"public_endpoint"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	JWTIssuer     string `mapstructure:"jwt_issuer"`
	SessionCookie string `mapstructure:"session_cookie"`
	SignInURL     string `mapstructure:"sign_in_url"`
}

type SMTPConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	From        string        `mapstructure:"from"`
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

type QuotaConfig struct {
	// Capacity is the per-user storage ceiling in bytes.
	Capacity int64 `mapstructure:"capacity"`
}

const (
	DefaultMaxUploadSize = 100 << 20 // 100 MB
	DefaultQuotaCapacity = 2 << 30   // 2 GiB
)

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Server.MaxUploadSize <= 0 {
		config.Server.MaxUploadSize = DefaultMaxUploadSize
	}
	if config.Quota.Capacity <= 0 {
		config.Quota.Capacity = DefaultQuotaCapacity
	}
	if config.Auth.SessionCookie == "" {
		config.Auth.SessionCookie = "session"
	}
	if config.Auth.SignInURL == "" {
		config.Auth.SignInURL = "/sign-in"
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
