package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	StorageMongo  = "mongo"
	StorageScylla = "scylla"
	StorageMemory = "memory"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Logging       LoggingConfig
	Storage       StorageConfig
	Mongo         MongoConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Clickhouse    ClickhouseConfig
	Elasticsearch ElasticsearchConfig
	S3            S3Config
	SMTP          SMTPConfig
	JWT           JWTConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	Driver string
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type ClickhouseConfig struct {
	Enabled  bool
	URL      string
	Username string
	Password string
	Database string
}

type ElasticsearchConfig struct {
	Enabled  bool
	URL      string
	Username string
	Password string
	Index    string
}

type S3Config struct {
	Enabled   bool
	Region    string
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	URLExpiry time.Duration
}

// SMTPConfig holds OTP mail relay settings. An empty User or Password
// selects the development log notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type AuthConfig struct {
	OTPLength         int
	OTPTTL            time.Duration
	OTPMaxAttempts    int
	BcryptCost        int
	PasswordMinLength int
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

var current *Config

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", EnvDevelopment),
		Server: ServerConfig{
			Host:         getEnv("HOST", ""),
			Port:         getEnvInt("PORT", 5000),
			TLSPort:      getEnvInt("TLS_PORT", 8443),
			EnableTLS:    getEnvBool("ENABLE_TLS", false),
			AutoCert:     getEnvBool("AUTO_CERT", false),
			Domain:       getEnv("DOMAIN", "localhost"),
			CertFile:     getEnv("CERT_FILE", ""),
			KeyFile:      getEnv("KEY_FILE", ""),
			AutoCertDir:  getEnv("AUTOCERT_DIR", "./certs"),
			Email:        getEnv("ACME_EMAIL", ""),
			CORSOrigins:  getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000", "https://*"}),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageMongo)),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "vsgifts"),
			ConnectTimeout: getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Scylla: ScyllaConfig{
			Nodes:    getEnvSlice("SCYLLA_NODES", []string{"localhost:9042"}),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "vsgifts"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			URL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 20),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "account-events"),
		},
		Clickhouse: ClickhouseConfig{
			Enabled:  getEnvBool("CLICKHOUSE_ENABLED", false),
			URL:      getEnv("CLICKHOUSE_URL", "localhost:9000"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			Database: getEnv("CLICKHOUSE_DATABASE", "vsgifts"),
		},
		Elasticsearch: ElasticsearchConfig{
			Enabled:  getEnvBool("ELASTICSEARCH_ENABLED", false),
			URL:      getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username: getEnv("ELASTICSEARCH_USERNAME", ""),
			Password: getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:    getEnv("ELASTICSEARCH_INDEX", "products"),
		},
		S3: S3Config{
			Enabled:   getEnvBool("S3_ENABLED", false),
			Region:    getEnv("S3_REGION", "ap-south-1"),
			Bucket:    getEnv("S3_BUCKET", "vsgifts-products"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			URLExpiry: getEnvDuration("S3_URL_EXPIRY", 15*time.Minute),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("EMAIL_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("EMAIL_PORT", 587),
			User:     getEnv("EMAIL_USER", ""),
			Password: getEnv("EMAIL_PASS", ""),
			From:     getEnv("EMAIL_FROM", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getEnvDuration("JWT_TTL", 30*24*time.Hour),
		},
		Auth: AuthConfig{
			OTPLength:         getEnvInt("OTP_LENGTH", 6),
			OTPTTL:            getEnvDuration("OTP_TTL", 10*time.Minute),
			OTPMaxAttempts:    getEnvInt("OTP_MAX_ATTEMPTS", 5),
			BcryptCost:        getEnvInt("BCRYPT_COST", 10),
			PasswordMinLength: getEnvInt("PASSWORD_MIN_LENGTH", 6),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
	if cfg.JWT.Secret == "" && !cfg.IsProduction() {
		cfg.JWT.Secret = "dev-insecure-secret"
	}

	current = cfg
	return cfg
}

// Get returns the most recently loaded config, loading it on first use.
func Get() *Config {
	if current == nil {
		return LoadConfig()
	}
	return current
}

// Validate reports settings that would make the service unsafe or unusable.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.JWT.Secret == "dev-insecure-secret" {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	switch c.Storage.Driver {
	case StorageMongo, StorageScylla, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Auth.OTPMaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be positive"))
	}
	if c.Auth.OTPLength < 4 || c.Auth.OTPLength > 10 {
		errs = append(errs, errors.New("OTP_LENGTH must be between 4 and 10"))
	}
	if c.Server.EnableTLS && c.Server.AutoCert && c.Server.Domain == "" {
		errs = append(errs, errors.New("DOMAIN is required when AUTO_CERT is enabled"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
