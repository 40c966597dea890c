package conf

import (
	"fmt"
	"time"

	"github.com/leafcare/terrarium-backend/internal/pkg/database"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/workerpool"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Database database.Config   `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Log      logger.Config     `mapstructure:"log"`
	Auth     AuthConfig        `mapstructure:"auth"`
	Mail     MailConfig        `mapstructure:"mail"`
	Files    FilesConfig       `mapstructure:"files"`
	Plants   PlantsConfig      `mapstructure:"plants"`
	Pool     workerpool.Config `mapstructure:"pool"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	RecoveryTTL   time.Duration `mapstructure:"recovery_ttl"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
	CookieName    string        `mapstructure:"cookie_name"`
	CookieDomain  string        `mapstructure:"cookie_domain"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	BaseURL  string `mapstructure:"base_url"` // link prefix used in mail bodies
}

// FilesConfig drives the media layer: hashing, the public directory tree
// and derivative generation.
type FilesConfig struct {
	Hash      string `mapstructure:"hash"`      // md5, sha1 or sha256
	PublicDir string `mapstructure:"publicdir"` // root of the content-addressed tree
	TempDir   string `mapstructure:"tempdir"`   // in-flight uploads
	Division  int    `mapstructure:"division"`  // nested directory segments per hash
	WebP      bool   `mapstructure:"webp"`      // also emit webp derivatives
	WebPOnly  bool   `mapstructure:"webponly"`  // emit only webp derivatives
	MaxSize   int64  `mapstructure:"maxsize"`   // max upload size in bytes
}

type PlantsConfig struct {
	MaxForMassAction int `mapstructure:"maxformassaction"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := defaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: *database.DefaultConfig(),
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Log: *logger.DefaultConfig(),
		Auth: AuthConfig{
			SessionTTL:  30 * 24 * time.Hour,
			RecoveryTTL: time.Hour,
			BcryptCost:  12,
			CookieName:  "terrarium_session",
		},
		Files: FilesConfig{
			Hash:      "sha256",
			PublicDir: "public",
			TempDir:   "temp",
			Division:  3,
			WebP:      true,
			MaxSize:   10 << 20,
		},
		Plants: PlantsConfig{
			MaxForMassAction: 50,
		},
		Pool: *workerpool.DefaultConfig(),
	}
}

func (c *Config) Validate() error {
	switch c.Files.Hash {
	case "md5", "sha1", "sha256":
	default:
		return fmt.Errorf("files.hash must be one of md5, sha1, sha256, got %q", c.Files.Hash)
	}

	if c.Files.Division < 1 {
		return fmt.Errorf("files.division must be at least 1")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	return nil
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
