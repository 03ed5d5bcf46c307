package config

import (
	"fmt"
	"strconv"
	"time"

	"empires-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	World     WorldConfig
	Universe  UniverseConfig
}

type RedisConfig struct {
	Enabled        bool
	URL            string
	Host           string
	Port           string
	Password       string
	DB             int
	EventsChannel  string
	AdvanceLockTTL time.Duration
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	CookieSecure    bool
	CookieSameSite  string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

// WorldConfig controls the world clock and where simulation state lives
type WorldConfig struct {
	Store           string
	TickDuration    time.Duration
	AdvanceInterval time.Duration
	CatalogPath     string
}

type UniverseConfig struct {
	Radius              int
	CelestialsPerSector int
	MaxCelestialSize    int
	Seed                int64
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		World:     loadWorldConfig(),
		Universe:  loadUniverseConfig(),
	}

	return config, nil
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "false") == "true"
	redisURL := utils.GetEnv("REDIS_URL", "")

	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))
	lockTTL, _ := strconv.Atoi(utils.GetEnv("REDIS_ADVANCE_LOCK_TTL_SECONDS", "30"))

	return RedisConfig{
		Enabled:        enabled,
		URL:            redisURL,
		Host:           utils.GetEnv("REDIS_HOST", "localhost"),
		Port:           utils.GetEnv("REDIS_PORT", "6379"),
		Password:       utils.GetEnv("REDIS_PASSWORD", ""),
		DB:             db,
		EventsChannel:  utils.GetEnv("REDIS_EVENTS_CHANNEL", "world:events"),
		AdvanceLockTTL: time.Duration(lockTTL) * time.Second,
	}
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(utils.GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_OPEN_CONNS", "25"))
	maxIdleConns, _ := strconv.Atoi(utils.GetEnv("DB_MAX_IDLE_CONNS", "5"))
	connMaxLifetime, _ := strconv.Atoi(utils.GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "empires"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
	}
}

func loadAuthConfig() AuthConfig {
	tokenExpiration, _ := strconv.Atoi(utils.GetEnv("JWT_EXPIRATION_HOURS", "720"))

	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(tokenExpiration) * time.Hour,
		CookieSecure:    utils.GetEnv("COOKIE_SECURE", "false") == "true",
		CookieSameSite:  utils.GetEnv("COOKIE_SAMESITE", "lax"),
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     utils.GetEnv("LOG_FORMAT", "text"),
		JSONFormat: jsonFormat,
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"
	requestsPerSecond, _ := strconv.ParseFloat(utils.GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(utils.GetEnv("RATE_LIMIT_BURST_SIZE", "20"))

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
		TrustProxy:        utils.GetEnv("RATE_LIMIT_TRUST_PROXY", "false") == "true",
	}
}

func loadWorldConfig() WorldConfig {
	tickSeconds, _ := strconv.Atoi(utils.GetEnv("TICK_DURATION_SECONDS", "60"))
	advanceSeconds, _ := strconv.Atoi(utils.GetEnv("ADVANCE_INTERVAL_SECONDS", "10"))

	return WorldConfig{
		Store:           utils.GetEnv("WORLD_STORE", "postgres"),
		TickDuration:    time.Duration(tickSeconds) * time.Second,
		AdvanceInterval: time.Duration(advanceSeconds) * time.Second,
		CatalogPath:     utils.GetEnv("CATALOG_PATH", ""),
	}
}

func loadUniverseConfig() UniverseConfig {
	radius, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_RADIUS", "6"))
	celestialsPerSector, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_CELESTIALS_PER_SECTOR", "3"))
	maxSize, _ := strconv.Atoi(utils.GetEnv("UNIVERSE_MAX_CELESTIAL_SIZE", "12"))
	seed, _ := strconv.ParseInt(utils.GetEnv("UNIVERSE_SEED", "1"), 10, 64)

	return UniverseConfig{
		Radius:              radius,
		CelestialsPerSector: celestialsPerSector,
		MaxCelestialSize:    maxSize,
		Seed:                seed,
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.World.Store {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "memory":
	default:
		return fmt.Errorf("WORLD_STORE must be postgres or memory, got %q", c.World.Store)
	}

	if c.World.TickDuration < time.Second {
		return fmt.Errorf("TICK_DURATION_SECONDS must be at least 1")
	}

	if c.World.AdvanceInterval <= 0 || c.World.AdvanceInterval > c.World.TickDuration {
		return fmt.Errorf("ADVANCE_INTERVAL_SECONDS must be between 1 and TICK_DURATION_SECONDS")
	}

	if c.Universe.Radius < 0 {
		return fmt.Errorf("UNIVERSE_RADIUS must not be negative")
	}

	if c.Universe.CelestialsPerSector < 0 || c.Universe.MaxCelestialSize < 1 {
		return fmt.Errorf("universe celestial settings are invalid")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
