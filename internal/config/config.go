package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Mail      MailConfig      `mapstructure:"mail"      validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains session token and password hashing settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// TokenLifetimeMinutes of zero issues tokens that only end on logout.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"gte=0"`
	BcryptCost           int `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// MailConfig contains outbound notification settings. An empty SendGrid
// key selects the logging sender.
type MailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromAddress    string `mapstructure:"from_address" validate:"required,email"`
	FromName       string `mapstructure:"from_name"`
	QueueSize      int    `mapstructure:"queue_size"   validate:"gt=0"`
	WorkerCount    int    `mapstructure:"worker_count" validate:"gt=0"`
}

// RateLimitConfig bounds unauthenticated account endpoints per client IP.
type RateLimitConfig struct {
	AuthRequestsPerMinute int `mapstructure:"auth_requests_per_minute" validate:"gt=0"`
}
