package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"revox-adapter/internal/revox"
	"revox-adapter/internal/webhook"
)

// Config holds all configuration required by the adapter process.
// All values come from env (or an env-file loaded by the process runner).
type Config struct {
	App         AppConfig
	Revox       RevoxConfig
	Webhook     WebhookConfig
	Auth        AuthConfig
	Credentials CredentialsConfig
	DB          DBConfig
	Events      EventsConfig
	Redis       RedisConfig
	AMQP        AMQPConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type RevoxConfig struct {
	// APIKey is used when credentials come from env.
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
}

type WebhookConfig struct {
	// PublicURL is the externally visible URL of the receiver, echoed in every event.
	PublicURL    string
	Path         string
	ResultFilter string
	Secret       string
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// Credential sources.
const (
	CredentialsSourceEnv      = "env"
	CredentialsSourcePostgres = "postgres"
)

type CredentialsConfig struct {
	Source string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type EventsConfig struct {
	// Sink is one of log, redis, amqp.
	Sink string
}

type RedisConfig struct {
	Host    string
	Port    int
	Channel string
}

type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Revox.APIKey = strings.TrimSpace(os.Getenv("REVOX_API_KEY"))
	c.Revox.BaseURL = strings.TrimSpace(os.Getenv("REVOX_BASE_URL"))
	{
		d, err := optionalDuration("REVOX_HTTP_TIMEOUT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Revox.HTTPTimeout = d
	}

	c.Webhook.PublicURL = strings.TrimSpace(os.Getenv("WEBHOOK_PUBLIC_URL"))
	c.Webhook.Path = strings.TrimSpace(os.Getenv("WEBHOOK_PATH"))
	c.Webhook.ResultFilter = strings.TrimSpace(os.Getenv("WEBHOOK_RESULT_FILTER"))
	c.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	{
		d, err := optionalDuration("JWT_ACCESS_TTL")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Auth.AccessTokenTTL = d
	}

	c.Credentials.Source = strings.TrimSpace(os.Getenv("CREDENTIALS_SOURCE"))
	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := optionalInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Events.Sink = strings.TrimSpace(os.Getenv("EVENT_SINK"))
	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Channel = strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	c.AMQP.URL = strings.TrimSpace(os.Getenv("AMQP_URL"))
	c.AMQP.Exchange = strings.TrimSpace(os.Getenv("AMQP_EXCHANGE"))
	c.AMQP.RoutingKey = strings.TrimSpace(os.Getenv("AMQP_ROUTING_KEY"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration and fills in defaults for optional values.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Revox.BaseURL == "" {
		c.Revox.BaseURL = revox.DefaultBaseURL
	} else if !isAbsoluteURL(c.Revox.BaseURL) {
		errs = append(errs, fmt.Errorf("REVOX_BASE_URL must be an absolute url, got %q", c.Revox.BaseURL))
	}
	if c.Revox.HTTPTimeout <= 0 {
		c.Revox.HTTPTimeout = 30 * time.Second
	}

	if c.Webhook.PublicURL == "" {
		errs = append(errs, errors.New("WEBHOOK_PUBLIC_URL is required"))
	} else if !isAbsoluteURL(c.Webhook.PublicURL) {
		errs = append(errs, fmt.Errorf("WEBHOOK_PUBLIC_URL must be an absolute url, got %q", c.Webhook.PublicURL))
	}
	if c.Webhook.Path == "" {
		c.Webhook.Path = "/webhooks/revox"
	} else if !strings.HasPrefix(c.Webhook.Path, "/") {
		errs = append(errs, fmt.Errorf("WEBHOOK_PATH must start with /, got %q", c.Webhook.Path))
	}
	if isAbsoluteURL(c.Webhook.PublicURL) && strings.HasPrefix(c.Webhook.Path, "/") && !publicURLServesPath(c.Webhook.PublicURL, c.Webhook.Path) {
		errs = append(errs, fmt.Errorf("WEBHOOK_PUBLIC_URL must end with WEBHOOK_PATH %q, got %q", c.Webhook.Path, c.Webhook.PublicURL))
	}
	if f, err := webhook.ParseFilter(c.Webhook.ResultFilter); err != nil {
		errs = append(errs, fmt.Errorf("WEBHOOK_RESULT_FILTER must be one of all, human, voicemail, IVR, got %q", c.Webhook.ResultFilter))
	} else {
		c.Webhook.ResultFilter = string(f)
	}
	if c.IsProduction() && c.Webhook.Secret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required in production"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Credentials.Source == "" {
		c.Credentials.Source = CredentialsSourceEnv
	}
	switch c.Credentials.Source {
	case CredentialsSourceEnv:
		if c.Revox.APIKey == "" {
			errs = append(errs, errors.New("REVOX_API_KEY is required when CREDENTIALS_SOURCE=env"))
		}
	case CredentialsSourcePostgres:
		errs = append(errs, c.validateDB()...)
	default:
		errs = append(errs, fmt.Errorf("CREDENTIALS_SOURCE must be one of env, postgres, got %q", c.Credentials.Source))
	}

	if c.Events.Sink == "" {
		c.Events.Sink = "log"
	}
	switch c.Events.Sink {
	case "log":
	case "redis":
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when EVENT_SINK=redis"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
		if c.Redis.Channel == "" {
			c.Redis.Channel = "revox.calls.completed"
		}
	case "amqp":
		if c.AMQP.URL == "" {
			errs = append(errs, errors.New("AMQP_URL is required when EVENT_SINK=amqp"))
		}
		if c.AMQP.Exchange == "" && c.AMQP.RoutingKey == "" {
			errs = append(errs, errors.New("AMQP_EXCHANGE or AMQP_ROUTING_KEY is required when EVENT_SINK=amqp"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVENT_SINK must be one of log, redis, amqp, got %q", c.Events.Sink))
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Contains the password; never log it.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	return parseInt(key, v)
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	return parseInt(key, v)
}

func parseInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isAbsoluteURL(v string) bool {
	u, err := url.Parse(v)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// publicURLServesPath reports whether the public URL's path ends with the
// receiver's route, allowing for a reverse-proxy prefix.
func publicURLServesPath(publicURL, path string) bool {
	u, err := url.Parse(publicURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.TrimRight(u.Path, "/"), strings.TrimRight(path, "/"))
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
