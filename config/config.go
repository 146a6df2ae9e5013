package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	App struct {
		Name    string `json:"name" yaml:"name"`       // Public application name used in emails and the TOTP issuer.
		BaseURL string `json:"baseUrl" yaml:"baseUrl"` // Public base URL embedded in emailed links.
	} `json:"app" yaml:"app"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	Session *SessionConfig `json:"session" yaml:"session"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	PasswordStrength *PasswordStrengthConfig `json:"passwordStrength" yaml:"passwordStrength"`

	GoogleOAuth *GoogleOAuthConfig `json:"googleOAuth" yaml:"googleOAuth"`

	// Email configuration for the external email-sending collaborator
	Email *EmailConfig `json:"email" yaml:"email"`

	// Billing configuration for the external payment collaborator
	Billing *BillingConfig `json:"billing" yaml:"billing"`

	// WebAuthn relying-party configuration for passkey ceremonies
	WebAuthn *WebAuthnConfig `json:"webauthn" yaml:"webauthn"`

	// RateLimit configuration for throttling sensitive endpoints
	RateLimit *RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`

	// QRCode configuration for TOTP enrollment QR codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`
}

// RedisConfig defines the secondary-store connection.
type RedisConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// Addr joins host and port for the go-redis client.
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// SessionConfig defines session lifetimes and the cookie cache.
type SessionConfig struct {
	Secret     string        `json:"secret" yaml:"secret"`         // Signs two-factor challenge tokens. Required.
	CookieName string        `json:"cookieName" yaml:"cookieName"` // Name of the httpOnly session cookie.
	ExpiresIn  time.Duration `json:"expiresIn" yaml:"expiresIn"`   // Authoritative session TTL.
	UpdateAge  time.Duration `json:"updateAge" yaml:"updateAge"`   // Sliding-window refresh threshold.
	CacheTTL   time.Duration `json:"cacheTtl" yaml:"cacheTtl"`     // Secondary-store cookie cache TTL.
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost          int           `json:"bcryptCost" yaml:"bcryptCost"`
	ChallengeTTL        time.Duration `json:"challengeTtl" yaml:"challengeTtl"`               // Lifetime of pending two-factor challenge tokens.
	VerificationTTL     time.Duration `json:"verificationTtl" yaml:"verificationTtl"`         // Lifetime of emailed verification tokens.
	InvitationTTL       time.Duration `json:"invitationTtl" yaml:"invitationTtl"`             // Lifetime of organization invitations.
	VerificationSendGap time.Duration `json:"verificationSendGap" yaml:"verificationSendGap"` // Cooldown between verification emails.
	BackupCodeCount     int           `json:"backupCodeCount" yaml:"backupCodeCount"`
}

// PasswordStrengthConfig defines password strength requirements
type PasswordStrengthConfig struct {
	MinLength        int  `json:"minLength" yaml:"minLength"`
	RequireUppercase bool `json:"requireUppercase" yaml:"requireUppercase"`
	RequireLowercase bool `json:"requireLowercase" yaml:"requireLowercase"`
	RequireNumbers   bool `json:"requireNumbers" yaml:"requireNumbers"`
	RequireSpecial   bool `json:"requireSpecial" yaml:"requireSpecial"`
	MaxLength        int  `json:"maxLength" yaml:"maxLength"`
}

type GoogleOAuthConfig struct {
	ClientID     string `json:"clientId" yaml:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret"`
}

// EmailConfig defines the email provider credentials.
type EmailConfig struct {
	APIURL      string `json:"apiUrl" yaml:"apiUrl"`
	APIKey      string `json:"apiKey" yaml:"apiKey"`
	FromAddress string `json:"fromAddress" yaml:"fromAddress"`
	FromName    string `json:"fromName" yaml:"fromName"`
}

// BillingConfig defines the payment provider credentials and known plans.
type BillingConfig struct {
	APIURL        string       `json:"apiUrl" yaml:"apiUrl"`
	APIKey        string       `json:"apiKey" yaml:"apiKey"`
	WebhookSecret string       `json:"webhookSecret" yaml:"webhookSecret"`
	Plans         []PlanConfig `json:"plans" yaml:"plans"`
}

// PlanConfig maps a plan name to the provider's price identifier.
type PlanConfig struct {
	Name    string `json:"name" yaml:"name"`
	PriceID string `json:"priceId" yaml:"priceId"`
}

// PlanByName looks up a configured plan; ok is false for unknown plans.
func (c *BillingConfig) PlanByName(name string) (PlanConfig, bool) {
	for _, plan := range c.Plans {
		if plan.Name == name {
			return plan, true
		}
	}

	return PlanConfig{}, false
}

// WebAuthnConfig defines the relying-party identity for passkey ceremonies.
type WebAuthnConfig struct {
	RPID          string   `json:"rpId" yaml:"rpId"`
	RPDisplayName string   `json:"rpDisplayName" yaml:"rpDisplayName"`
	RPOrigins     []string `json:"rpOrigins" yaml:"rpOrigins"`
}

// RateLimitConfig defines the shared fixed-window rate limiter.
type RateLimitConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	Window  time.Duration `json:"window" yaml:"window"`
	Max     int           `json:"max" yaml:"max"`
}

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	cfg.Postgres.Replicas = buildReplicasFromEnv()

	return cfg, nil
}

// applyDefaults fills optional values and rejects missing required ones.
// Missing required configuration is fatal: the process must not come up
// half-configured.
func (cfg *Config) applyDefaults() error {
	if cfg.Postgres == nil {
		return errors.New("postgres configuration is required")
	}
	if cfg.Redis == nil {
		return errors.New("redis configuration is required")
	}
	if cfg.Session == nil || cfg.Session.Secret == "" {
		return errors.New("session secret is required")
	}
	if cfg.App.BaseURL == "" {
		return errors.New("app base url is required")
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if cfg.App.Name == "" {
		cfg.App.Name = "Passport"
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "passport_session"
	}
	if cfg.Session.ExpiresIn <= 0 {
		cfg.Session.ExpiresIn = 7 * 24 * time.Hour
	}
	if cfg.Session.UpdateAge <= 0 {
		cfg.Session.UpdateAge = 24 * time.Hour
	}
	if cfg.Session.CacheTTL <= 0 {
		cfg.Session.CacheTTL = 5 * time.Minute
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.ChallengeTTL <= 0 {
		cfg.Auth.ChallengeTTL = 5 * time.Minute
	}
	if cfg.Auth.VerificationTTL <= 0 {
		cfg.Auth.VerificationTTL = time.Hour
	}
	if cfg.Auth.InvitationTTL <= 0 {
		cfg.Auth.InvitationTTL = 48 * time.Hour
	}
	if cfg.Auth.VerificationSendGap <= 0 {
		cfg.Auth.VerificationSendGap = 60 * time.Second
	}
	if cfg.Auth.BackupCodeCount <= 0 {
		cfg.Auth.BackupCodeCount = 10
	}

	if cfg.RateLimit == nil {
		cfg.RateLimit = &RateLimitConfig{Enabled: true, Window: 10 * time.Second, Max: 100}
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = 10 * time.Second
	}
	if cfg.RateLimit.Max <= 0 {
		cfg.RateLimit.Max = 100
	}

	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
