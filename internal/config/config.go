package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration required by the API process.
// Values come from the environment, optionally layered over a config file.
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	Store     StoreConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Telephony TelephonyConfig
	Inbound   InboundConfig
}

type AppConfig struct {
	Env  string
	Port int
	// PublicBaseURL is the host carriers reach us on, e.g. voice.example.com.
	PublicBaseURL string
}

type StoreConfig struct {
	// Backend is one of memory, redis, postgres.
	Backend string
	// TTL bounds how long redis keeps a call config.
	TTL time.Duration
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

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type TelephonyConfig struct {
	// HTTPTimeout bounds every outbound carrier request.
	HTTPTimeout time.Duration
	// credentials holds raw provider secrets keyed by env name.
	credentials map[string]string
}

// InboundConfig seeds the agent for calls registered from carrier webhooks.
type InboundConfig struct {
	AgentType      string
	AgentPrompt    string
	InitialMessage string
	Record         bool
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// credentialKeys are the provider secrets exposed through Credential.
var credentialKeys = []string{
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN",
	"VONAGE_API_KEY", "VONAGE_API_SECRET", "VONAGE_APPLICATION_ID", "VONAGE_PRIVATE_KEY",
	"EXOTEL_ACCOUNT_SID", "EXOTEL_API_KEY", "EXOTEL_API_TOKEN", "EXOTEL_SUBDOMAIN",
	"PLIVO_AUTH_ID", "PLIVO_AUTH_TOKEN",
}

// Load reads configuration from the environment. When path is non-empty the
// file is read first and environment variables override it.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("STORE_TTL", "24h")
	v.SetDefault("PROVIDER_HTTP_TIMEOUT", "10s")
	v.SetDefault("INBOUND_AGENT_TYPE", "agent_chat_gpt")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	c := Config{}
	p := &parser{v: v}
	str := func(key string) string { return strings.TrimSpace(v.GetString(key)) }

	c.App.Env = str("APP_ENV")
	c.App.Port = p.intValue("APP_PORT")
	c.App.PublicBaseURL = str("PUBLIC_BASE_URL")

	c.Store.Backend = strings.ToLower(str("STORE_BACKEND"))
	c.Store.TTL = p.durationValue("STORE_TTL")

	c.DB.Host = str("DB_HOST")
	c.DB.User = str("DB_USER")
	c.DB.Password = v.GetString("DB_PASSWORD")
	c.DB.Name = str("DB_NAME")
	c.DB.SSLMode = str("DB_SSLMODE")
	c.Redis.Host = str("REDIS_HOST")
	switch c.Store.Backend {
	case BackendPostgres:
		c.DB.Port = p.intValue("DB_PORT")
	case BackendRedis:
		c.Redis.Port = p.intValue("REDIS_PORT")
	}

	c.Auth.JWTSecret = v.GetString("JWT_SECRET")
	c.Auth.JWTIssuer = str("JWT_ISSUER")
	c.Auth.JWTAudience = str("JWT_AUDIENCE")
	c.Auth.AccessTokenTTL = p.durationValue("JWT_ACCESS_TTL")

	c.Telephony.HTTPTimeout = p.durationValue("PROVIDER_HTTP_TIMEOUT")
	c.Telephony.credentials = make(map[string]string, len(credentialKeys))
	for _, k := range credentialKeys {
		c.Telephony.credentials[k] = strings.TrimSpace(v.GetString(k))
	}
	if pk, err := privateKey(c.Telephony.credentials["VONAGE_PRIVATE_KEY"]); err != nil {
		p.errs = append(p.errs, err)
	} else {
		c.Telephony.credentials["VONAGE_PRIVATE_KEY"] = pk
	}

	c.Inbound.AgentType = str("INBOUND_AGENT_TYPE")
	c.Inbound.AgentPrompt = v.GetString("INBOUND_AGENT_PROMPT")
	c.Inbound.InitialMessage = v.GetString("INBOUND_INITIAL_MESSAGE")
	c.Inbound.Record = v.GetBool("INBOUND_RECORD")

	if err := joinErrors(p.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills environment defaults.
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
	if c.App.PublicBaseURL == "" {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required"))
	}

	switch c.Store.Backend {
	case "":
		c.Store.Backend = BackendMemory
	case BackendMemory:
	case BackendPostgres:
		errs = append(errs, c.validateDB()...)
	case BackendRedis:
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of memory, redis, postgres, got %q", c.Store.Backend))
	}
	if c.IsProduction() && c.Store.Backend == BackendMemory {
		errs = append(errs, errors.New("STORE_BACKEND memory is not allowed in production"))
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
	if c.Telephony.HTTPTimeout <= 0 {
		c.Telephony.HTTPTimeout = 10 * time.Second
	}
	if c.Store.TTL <= 0 {
		c.Store.TTL = 24 * time.Hour
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
	// Avoid logging this string; it contains secrets.
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

// Credential returns a provider secret by env name, or "" when unset.
func (c Config) Credential(key string) string {
	return c.Telephony.credentials[key]
}

// WithCredentials returns a copy with the given provider secrets set.
func (c Config) WithCredentials(kv map[string]string) Config {
	creds := make(map[string]string, len(c.Telephony.credentials)+len(kv))
	for k, v := range c.Telephony.credentials {
		creds[k] = v
	}
	for k, v := range kv {
		creds[k] = v
	}
	c.Telephony.credentials = creds
	return c
}

// privateKey accepts inline PEM (with literal \n escapes) or a file path.
func privateKey(v string) (string, error) {
	if v == "" || strings.Contains(v, "BEGIN") {
		return strings.ReplaceAll(v, `\n`, "\n"), nil
	}
	b, err := os.ReadFile(v)
	if err != nil {
		return "", fmt.Errorf("VONAGE_PRIVATE_KEY: read key file: %w", err)
	}
	return string(b), nil
}

func mustInt(v *viper.Viper, key string) (int, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, s)
	}
	return n, nil
}

// mustDuration treats an empty value as zero so Validate can apply defaults.
func mustDuration(v *viper.Viper, key string) (time.Duration, error) {
	s := strings.TrimSpace(v.GetString(key))
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, s)
	}
	return d, nil
}

// parser collects parse errors so Load can report all of them.
type parser struct {
	v    *viper.Viper
	errs []error
}

func (p *parser) intValue(key string) int {
	n, err := mustInt(p.v, key)
	if err != nil {
		p.errs = append(p.errs, err)
	}
	return n
}

func (p *parser) durationValue(key string) time.Duration {
	d, err := mustDuration(p.v, key)
	if err != nil {
		p.errs = append(p.errs, err)
	}
	return d
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
