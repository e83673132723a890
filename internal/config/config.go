package config

import (
	"context"
	"fmt"
	"regexp"

	"github.com/sethvargo/go-envconfig"
)

const (
	defaultPasswordRule = `^.{8,1000}$`
	defaultEmailRule    = `^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`
	defaultPhoneRule    = `^\+[0-9]{5,15}$`
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	JWT       JWTConfig       `env:",prefix=JWT_"`
	Providers ProvidersConfig `env:",prefix="`
	Mail      MailConfig      `env:",prefix=MAIL_"`
	SMS       SMSConfig       `env:",prefix=SMS_"`
	Security  SecurityConfig  `env:",prefix="`
	Accounts  AccountsConfig  `env:",prefix="`
	CORS      CORSConfig      `env:",prefix=CORS_"`

	// OperatorToken signs operator signatures. It is a separate secret from the
	// JWT signing material so an end user holding a valid access token can never
	// forge an operator signature.
	OperatorToken string `env:"OPERATOR_TOKEN,required"`

	SiteURL     string `env:"SITE_URL,default=http://localhost:3000"`
	InstanceURL string `env:"INSTANCE_URL,default=http://localhost:8080"`
	Env         string `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=gatehouse"`
	Password string `env:"PASSWORD,default=gatehouse_password"`
	DBName   string `env:"DB,default=gatehouse_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`

	MigrationsURL string `env:"MIGRATIONS,default=file://migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type ProviderConfig struct {
	Enabled      bool   `env:"ENABLED,default=false"`
	ClientID     string `env:"CLIENT_ID,default="`
	ClientSecret string `env:"CLIENT_SECRET,default="`
}

type ProvidersConfig struct {
	Facebook ProviderConfig `env:",prefix=FACEBOOK_"`
	Google   ProviderConfig `env:",prefix=GOOGLE_"`
	Github   ProviderConfig `env:",prefix=GITHUB_"`
}

type SMSConfig struct {
	AccountSID string `env:"ACCOUNT_SID,default="`
	AuthToken  string `env:"AUTH_TOKEN,default="`
	From       string `env:"FROM,default="`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

// AccountsConfig controls the account lifecycle state machine.
type AccountsConfig struct {
	AutoConfirm          bool   `env:"AUTO_CONFIRM,default=false"`
	DisableSignup        bool   `env:"DISABLE_SIGNUP,default=false"`
	DisableEmail         bool   `env:"DISABLE_EMAIL,default=false"`
	DisablePhone         bool   `env:"DISABLE_PHONE,default=false"`
	AdminOnlyList        bool   `env:"ADMIN_ONLY_LIST,default=true"`
	MinutesBetweenResend int    `env:"MINUTES_BETWEEN_RESEND,default=1"`
	PasswordRule         Regexp `env:"PASSWORD_RULE"`
	EmailRule            Regexp `env:"EMAIL_RULE"`
	PhoneRule            Regexp `env:"PHONE_RULE"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization,X-Operator-Signature"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables and resolves the JWT
// signing material once, so the rest of the process treats it as immutable.
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.OperatorToken) < 32 {
		return nil, fmt.Errorf("OPERATOR_TOKEN must be at least 32 characters long")
	}

	if err := config.JWT.loadKeys(); err != nil {
		return nil, fmt.Errorf("failed to load jwt keys: %w", err)
	}

	if config.Accounts.PasswordRule.Regexp == nil {
		config.Accounts.PasswordRule.Regexp = regexp.MustCompile(defaultPasswordRule)
	}
	if config.Accounts.EmailRule.Regexp == nil {
		config.Accounts.EmailRule.Regexp = regexp.MustCompile(defaultEmailRule)
	}
	if config.Accounts.PhoneRule.Regexp == nil {
		config.Accounts.PhoneRule.Regexp = regexp.MustCompile(defaultPhoneRule)
	}

	config.Mail.applyDefaults()

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
