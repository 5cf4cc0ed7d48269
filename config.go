package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile    = "./config.yml"
	DefaultConfigEnvFile = "./config.env"
	DefaultFrontendURL   = "http://localhost:3000"
	DefaultPageLimit     = 10

	StoragePostgres = "postgres"
	StorageBolt     = "bolt"
	StorageRedis    = "redis"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string           `yaml:"git_commit" envconfig:"BOOKS_GIT_COMMIT"`
	GitTag             string           `yaml:"git_tag" envconfig:"BOOKS_GIT_TAG"`
	BuildTime          string           `yaml:"build_time" envconfig:"BOOKS_BUILD_TIME"`
	IsProduction       bool             `yaml:"is_production" envconfig:"BOOKS_IS_PRODUCTION"`
	LogLevel           zapcore.Level    `yaml:"log_level" envconfig:"BOOKS_LOG_LEVEL"`
	LogFolder          string           `yaml:"log_folder" envconfig:"BOOKS_LOG_FOLDER"`
	LogMaxSize         int              `yaml:"log_max_size" envconfig:"BOOKS_LOG_MAX_SIZE"`
	FrontendURL        string           `yaml:"frontend_url" envconfig:"FRONTEND_URL"`
	OpsEndpointsEnable bool             `yaml:"ops_endpoints_enable" envconfig:"BOOKS_OPS_ENDPOINTS_ENABLE"`
	ProfilerEnable     bool             `yaml:"profiler_enable" envconfig:"BOOKS_PROFILER_ENABLE"`
	Pagination         PaginationConfig `yaml:"pagination"`
	Server             ServerConfig     `yaml:"server"`
	Storage            StorageConfig    `yaml:"storage"`
	Postgres           PostgresConfig   `yaml:"postgres"`
	Redis              RedisConfig      `yaml:"redis"`
	BoltDB             BoltDBConfig     `yaml:"boltdb"`
}

type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit" envconfig:"BOOKS_PAGINATION_DEFAULT_LIMIT"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BOOKS_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"BOOKS_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BOOKS_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BOOKS_SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BOOKS_SERVER_SHUTDOWN_TIMEOUT"`
	RateLimit       float64       `yaml:"rate_limit" envconfig:"BOOKS_SERVER_RATE_LIMIT"` // requests per second per client, 0 disables
	RateBurst       int           `yaml:"rate_burst" envconfig:"BOOKS_SERVER_RATE_BURST"`
	// TrustProxyHeaders lets X-Real-IP and X-Forwarded-For identify rate limited clients.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" envconfig:"BOOKS_SERVER_TRUST_PROXY_HEADERS"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"BOOKS_STORAGE_DRIVER"`
}

type PostgresConfig struct {
	DSN          string        `yaml:"dsn" json:"-" envconfig:"BOOKS_POSTGRES_DSN"`
	MaxConns     int32         `yaml:"max_conns" envconfig:"BOOKS_POSTGRES_MAX_CONNS"`
	ConnTimeout  time.Duration `yaml:"conn_timeout" envconfig:"BOOKS_POSTGRES_CONN_TIMEOUT"`
	QueryTimeout time.Duration `yaml:"query_timeout" envconfig:"BOOKS_POSTGRES_QUERY_TIMEOUT"`
	AutoMigrate  bool          `yaml:"auto_migrate" envconfig:"BOOKS_POSTGRES_AUTO_MIGRATE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BOOKS_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BOOKS_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BOOKS_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BOOKS_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BOOKS_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BOOKS_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BOOKS_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BOOKS_REDIS_USERNAME"`
	Password      string        `yaml:"password" json:"-" envconfig:"BOOKS_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BOOKS_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BOOKS_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BOOKS_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BOOKS_BOLTDB_BUCKET_NAME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if len(config.FrontendURL) == 0 {
		config.FrontendURL = DefaultFrontendURL
	}

	if config.Pagination.DefaultLimit <= 0 {
		config.Pagination.DefaultLimit = DefaultPageLimit
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 100
	}

	if len(config.LogFolder) == 0 {
		config.LogFolder = "./logs"
	}

	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Server.RateLimit > 0 && config.Server.RateBurst <= 0 {
		config.Server.RateBurst = 1
	}

	switch config.Storage.Driver {
	case "":
		config.Storage.Driver = StoragePostgres
		fallthrough
	case StoragePostgres:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set a valid postgres dsn in configuration file")
		}
	case StorageRedis:
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
	case StorageBolt:
		if len(config.BoltDB.FilePath) == 0 || len(config.BoltDB.BucketName) == 0 {
			return errors.New("make sure to set valid boltdb file path and bucket name in configuration file")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, config.Storage.Driver)
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	// Set the environment configuration. Already defined variables are not overridden.
	err = godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	// Use environment variables with prefix `BOOKS`.
	err = LoadConfigEnvs("BOOKS", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return config, nil
}
