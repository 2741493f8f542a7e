package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ingestion-gateway/internal/model"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	Host string `mapstructure:"host"`
}

// StoreConfig describes how to reach the analytical store.
// Driver is clickhouse for real deployments; sqlite opens Path instead and
// is used for local dry runs.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Protocol        string        `mapstructure:"protocol"`
	Secure          bool          `mapstructure:"secure"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Addr returns host:port for network drivers.
func (s StoreConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type TransferConfig struct {
	PreviewLimit      int    `mapstructure:"preview_limit"`
	OutputDir         string `mapstructure:"output_dir"`
	UploadDir         string `mapstructure:"upload_dir"`
	JoinPolicy        string `mapstructure:"join_policy"`
	DefaultColumnType string `mapstructure:"default_column_type"`
	TableEngine       string `mapstructure:"table_engine"`
	// ColumnTypes overrides DefaultColumnType per destination column
	ColumnTypes map[string]string `mapstructure:"column_types"`
}

// StorageConfig configures the optional S3-compatible archive for exports
type StorageConfig struct {
	ArchiveEnabled bool   `mapstructure:"archive_enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	Bucket         string `mapstructure:"bucket"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	Prefix         string `mapstructure:"prefix"`
}

type SecurityConfig struct {
	RateLimitPerMinute int  `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int  `mapstructure:"rate_limit_burst"`
	EnableRateLimit    bool `mapstructure:"enable_rate_limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.yaml from ./configs or the working directory, falling
// back to defaults, with environment overrides such as STORE_HOST.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// MaxPreviewLimit caps the rows a preview may return
const MaxPreviewLimit = 100

// Validate rejects settings the transfer engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "clickhouse":
		if c.Store.Host == "" {
			return errors.New("store.host is required for the clickhouse driver")
		}
		if p := c.Store.Protocol; p != "native" && p != "http" {
			return fmt.Errorf("store.protocol must be native or http, got %q", p)
		}
	case "sqlite":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	if c.Transfer.PreviewLimit <= 0 || c.Transfer.PreviewLimit > MaxPreviewLimit {
		return fmt.Errorf("transfer.preview_limit must be between 1 and %d, got %d", MaxPreviewLimit, c.Transfer.PreviewLimit)
	}
	if _, err := model.ParseJoinPolicy(c.Transfer.JoinPolicy); err != nil {
		return fmt.Errorf("transfer.join_policy: %w", err)
	}
	if c.Storage.ArchiveEnabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return errors.New("storage.endpoint and storage.bucket are required when archiving is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.host", "0.0.0.0")

	// Store defaults
	v.SetDefault("store.driver", "clickhouse")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 9000)
	v.SetDefault("store.database", "default")
	v.SetDefault("store.username", "default")
	v.SetDefault("store.password", "")
	v.SetDefault("store.protocol", "native")
	v.SetDefault("store.secure", false)
	v.SetDefault("store.dial_timeout", "10s")
	v.SetDefault("store.path", "")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", "30m")

	// Transfer defaults
	v.SetDefault("transfer.preview_limit", 100)
	v.SetDefault("transfer.output_dir", "/app/uploads")
	v.SetDefault("transfer.upload_dir", "/app/uploads")
	v.SetDefault("transfer.join_policy", string(model.JoinPolicyDrop))
	v.SetDefault("transfer.default_column_type", "String")
	v.SetDefault("transfer.table_engine", "")
	v.SetDefault("transfer.column_types", map[string]string{})

	// Archive defaults
	v.SetDefault("storage.archive_enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.prefix", "exports")

	// Security defaults
	v.SetDefault("security.rate_limit_per_minute", 60)
	v.SetDefault("security.rate_limit_burst", 10)
	v.SetDefault("security.enable_rate_limit", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
