package config

import (
	"fmt"
	"net/url"
	"time"

	"axie-market-cache/internal/marketplace"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Marketplace MarketplaceConfig
	Store       StoreConfig
	Lock        LockConfig
	Sync        SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `envconfig:"APP_NAME" default:"axie-market-cache"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Debug       bool     `envconfig:"APP_DEBUG" default:"false"`
	Version     string   `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKeys     []string `envconfig:"API_KEYS"` // Keys accepted on sync and admin routes
}

// MarketplaceConfig holds the remote GraphQL API settings.
type MarketplaceConfig struct {
	URL       string        `envconfig:"MARKETPLACE_URL" default:"https://axieinfinity.com/graphql-server-v2/graphql"`
	Timeout   time.Duration `envconfig:"MARKETPLACE_TIMEOUT" default:"30s"`
	UserAgent string        `envconfig:"MARKETPLACE_USER_AGENT" default:"axie-market-cache/1.0"`
}

// StoreConfig holds cache database settings.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // memory, sqlite, postgres, mysql or mongodb
	Path string `envconfig:"STORE_PATH" default:"./data/axies.db"`
	// PostgreSQL / MySQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT"` // 0 selects 5432 for postgres, 3306 for mysql
	Name     string `envconfig:"STORE_DB_NAME" default:"axies"`
	User     string `envconfig:"STORE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"axies"`
}

// LockConfig holds sync lock settings.
type LockConfig struct {
	Type          string        `envconfig:"LOCK_TYPE" default:"memory"` // memory or redis
	TTL           time.Duration `envconfig:"LOCK_TTL" default:"2m"`
	RetryInterval time.Duration `envconfig:"LOCK_RETRY_INTERVAL" default:"100ms"`
	KeyPrefix     string        `envconfig:"LOCK_KEY_PREFIX" default:"axiecache:lock"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// SyncConfig holds scheduled sync settings.
type SyncConfig struct {
	Enabled        bool          `envconfig:"SYNC_ENABLED" default:"true"`
	Interval       time.Duration `envconfig:"SYNC_INTERVAL" default:"5m"`
	InitialDelay   time.Duration `envconfig:"SYNC_INITIAL_DELAY" default:"5s"`
	RunTimeout     time.Duration `envconfig:"SYNC_RUN_TIMEOUT" default:"2m"`
	PersistDecoded bool          `envconfig:"SYNC_PERSIST_DECODED" default:"false"`

	ListingFrom        int      `envconfig:"SYNC_LISTING_FROM" default:"0"`
	ListingSize        int      `envconfig:"SYNC_LISTING_SIZE" default:"24"`
	ListingSort        string   `envconfig:"SYNC_LISTING_SORT" default:"Latest"`
	ListingAuctionType string   `envconfig:"SYNC_LISTING_AUCTION_TYPE" default:"Sale"`
	ListingClasses     []string `envconfig:"SYNC_LISTING_CLASSES"`

	SoldFrom int `envconfig:"SYNC_SOLD_FROM" default:"0"`
	SoldSize int `envconfig:"SYNC_SOLD_SIZE" default:"20"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     fmt.Sprintf("%s:%d", s.Host, s.portOr(5432)),
		Path:     s.Name,
		RawQuery: "sslmode=" + url.QueryEscape(s.SSLMode),
	}
	return u.String()
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.portOr(3306), s.Name)
}

func (s *StoreConfig) portOr(def int) int {
	if s.Port == 0 {
		return def
	}
	return s.Port
}

// RedisAddress returns the Redis address in host:port format.
func (l *LockConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", l.RedisHost, l.RedisPort)
}

// ListingsParams returns the listing params used by scheduled syncs.
func (s *SyncConfig) ListingsParams() marketplace.ListingsParams {
	p := marketplace.ListingsParams{
		From:        s.ListingFrom,
		Size:        s.ListingSize,
		Sort:        marketplace.SortBy(s.ListingSort),
		AuctionType: marketplace.AuctionType(s.ListingAuctionType),
	}
	if len(s.ListingClasses) > 0 {
		p.Criteria = &marketplace.Criteria{Classes: s.ListingClasses}
	}
	return p
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.Store.Type {
	case "memory", "sqlite", "postgres", "mysql", "mongodb":
	default:
		return nil, fmt.Errorf("failed to load config: unknown STORE_TYPE %q", cfg.Store.Type)
	}
	switch cfg.Lock.Type {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("failed to load config: unknown LOCK_TYPE %q", cfg.Lock.Type)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
