package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

const devJWTSecret = "your-dev-secret-key"

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"5000"`
	// PublicURL is the externally visible base used in links sent by email.
	PublicURL    string `env:"PUBLIC_URL" envDefault:"http://localhost:5000"`
	DatabaseURL  string `env:"DATABASE_URL" envDefault:"mongodb://localhost:27017"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"devcamper"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret          string        `env:"JWT_SECRET" envDefault:"your-dev-secret-key"`
	JWTExpire          time.Duration `env:"JWT_EXPIRE" envDefault:"720h"`
	JWTCookieExpire    int           `env:"JWT_COOKIE_EXPIRE" envDefault:"30"`
	ResetTokenTTL      time.Duration `env:"RESET_TOKEN_TTL" envDefault:"10m"`
	ResetSweepSchedule string        `env:"RESET_SWEEP_SCHEDULE" envDefault:"@every 15m"`

	FileUploadPath string `env:"FILE_UPLOAD_PATH" envDefault:"./public/uploads"`
	MaxFileUpload  int64  `env:"MAX_FILE_UPLOAD" envDefault:"1000000"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"2525"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	FromEmail    string `env:"FROM_EMAIL" envDefault:"noreply@devcamper.io"`
	FromName     string `env:"FROM_NAME" envDefault:"DevCamper"`

	GeocoderURL       string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string `env:"GEOCODER_USER_AGENT" envDefault:"devcamper-backend"`

	CollectionUserName      string
	CollectionBootcampsName string
	CollectionCoursesName   string
	CollectionReviewsName   string
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.CollectionUserName = "users"
	cfg.CollectionBootcampsName = "bootcamps"
	cfg.CollectionCoursesName = "courses"
	cfg.CollectionReviewsName = "reviews"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate collects every problem so a misconfigured deploy fails with one message.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must not use the development default in production"))
	}
	if c.JWTExpire <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRE must be positive"))
	}
	if c.JWTCookieExpire <= 0 {
		errs = append(errs, errors.New("JWT_COOKIE_EXPIRE must be positive"))
	}
	if c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if u, err := url.Parse(c.PublicURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, errors.New("PUBLIC_URL must be an absolute http(s) URL"))
	}
	if c.MaxFileUpload <= 0 {
		errs = append(errs, errors.New("MAX_FILE_UPLOAD must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment checks if the current environment is development
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction checks if the current environment is production
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetDatabaseName returns the appropriate database name based on environment
func (c *Config) GetDatabaseName() string {
	return c.DatabaseName
}

// CookieMaxAge is the session cookie lifetime in seconds.
func (c *Config) CookieMaxAge() int {
	return c.JWTCookieExpire * 24 * 60 * 60
}
