package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddress     = ":8080"
	defaultBasePath    = "/admin"
	defaultEnvironment = "local"
	defaultLogLevel    = "info"
	defaultLogFormat   = "json"
	defaultLocale      = "en"
	defaultCookieName  = "blog_admin_session"
)

// ErrInvalid marks a configuration value that failed validation.
var ErrInvalid = errors.New("config: invalid value")

// Config captures the admin console runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Session  SessionConfig  `yaml:"session"`
	Posts    PostsConfig    `yaml:"posts"`
	Firebase FirebaseConfig `yaml:"firebase"`
	I18n     I18nConfig     `yaml:"i18n"`
	Register RegisterConfig `yaml:"register"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address     string `yaml:"address"`
	BasePath    string `yaml:"base_path"`
	Environment string `yaml:"environment"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SessionConfig holds the cookie codec keys. Keys are base64 encoded.
type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	HashKey    string `yaml:"hash_key"`
	BlockKey   string `yaml:"block_key"`
	Secure     bool   `yaml:"secure"`
}

// Blog post backends.
const (
	PostsBackendMemory    = "memory"
	PostsBackendREST      = "rest"
	PostsBackendFirestore = "firestore"
)

// PostsConfig selects the blog posts store. An empty backend means rest when
// APIURL is set and memory otherwise.
type PostsConfig struct {
	Backend             string `yaml:"backend"`
	APIURL              string `yaml:"api_url"`
	FirestoreCollection string `yaml:"firestore_collection"`
}

// ResolvedBackend returns the effective backend name.
func (p PostsConfig) ResolvedBackend() string {
	backend := strings.ToLower(strings.TrimSpace(p.Backend))
	if backend != "" {
		return backend
	}
	if p.APIURL != "" {
		return PostsBackendREST
	}
	return PostsBackendMemory
}

// FirebaseConfig enables Firebase authentication and registration.
type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// I18nConfig configures translations.
type I18nConfig struct {
	DefaultLocale string `yaml:"default_locale"`
}

// ProviderConfig describes one identity provider button.
type ProviderConfig struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// RegisterConfig configures the registration page.
type RegisterConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	file         string
	envMap       map[string]string
	useSystemEnv bool
}

// WithFile reads YAML from path before applying environment overrides.
func WithFile(path string) Option {
	return func(o *loaderOptions) {
		o.file = path
	}
}

// WithEnvMap injects explicit environment values. They take precedence over
// the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:     defaultAddress,
			BasePath:    defaultBasePath,
			Environment: defaultEnvironment,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Session: SessionConfig{
			CookieName: defaultCookieName,
		},
		I18n: I18nConfig{
			DefaultLocale: defaultLocale,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load combines defaults, the optional YAML file and environment variables,
// in that order of precedence, then validates the result.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := Default()
	if path := strings.TrimSpace(options.file); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := options.envMap[key]; ok {
			return v, true
		}
		if options.useSystemEnv {
			return os.LookupEnv(key)
		}
		return "", false
	}

	cfg.Server.Address = stringWithDefault(lookup, "ADMIN_HTTP_ADDR", cfg.Server.Address)
	cfg.Server.BasePath = stringWithDefault(lookup, "ADMIN_BASE_PATH", cfg.Server.BasePath)
	cfg.Server.Environment = stringWithDefault(lookup, "ADMIN_ENV", cfg.Server.Environment)
	cfg.Log.Level = stringWithDefault(lookup, "ADMIN_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = stringWithDefault(lookup, "ADMIN_LOG_FORMAT", cfg.Log.Format)
	cfg.Session.HashKey = stringWithDefault(lookup, "ADMIN_SESSION_HASH_KEY", cfg.Session.HashKey)
	cfg.Session.BlockKey = stringWithDefault(lookup, "ADMIN_SESSION_BLOCK_KEY", cfg.Session.BlockKey)
	cfg.Session.Secure = boolWithDefault(lookup, "ADMIN_SESSION_SECURE", cfg.Session.Secure)
	cfg.Posts.Backend = stringWithDefault(lookup, "ADMIN_POSTS_BACKEND", cfg.Posts.Backend)
	cfg.Posts.APIURL = stringWithDefault(lookup, "ADMIN_POSTS_API_URL", cfg.Posts.APIURL)
	cfg.Firebase.ProjectID = stringWithDefault(lookup, "FIREBASE_PROJECT_ID", cfg.Firebase.ProjectID)
	cfg.Firebase.CredentialsFile = stringWithDefault(lookup, "GOOGLE_APPLICATION_CREDENTIALS", cfg.Firebase.CredentialsFile)
	cfg.I18n.DefaultLocale = stringWithDefault(lookup, "ADMIN_DEFAULT_LOCALE", cfg.I18n.DefaultLocale)
	cfg.Metrics.Enabled = boolWithDefault(lookup, "ADMIN_METRICS_ENABLED", cfg.Metrics.Enabled)
	if ids := csvWithDefault(lookup, "ADMIN_REGISTER_PROVIDERS"); len(ids) > 0 {
		cfg.Register.Providers = mergeProviders(cfg.Register.Providers, ids)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Address) == "" {
		errs = append(errs, fmt.Errorf("%w: server.address is required", ErrInvalid))
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, fmt.Errorf("%w: server.base_path must start with /", ErrInvalid))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format must be json or console", ErrInvalid))
	}
	if c.Session.HashKey == "" && !c.IsLocal() {
		errs = append(errs, fmt.Errorf("%w: session.hash_key is required outside local environments", ErrInvalid))
	}
	if c.Session.HashKey != "" {
		if _, err := decodeKey(c.Session.HashKey); err != nil {
			errs = append(errs, fmt.Errorf("%w: session.hash_key: %v", ErrInvalid, err))
		}
	}
	if c.Session.BlockKey != "" {
		key, err := decodeKey(c.Session.BlockKey)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%w: session.block_key: %v", ErrInvalid, err))
		case len(key) != 16 && len(key) != 24 && len(key) != 32:
			errs = append(errs, fmt.Errorf("%w: session.block_key must decode to 16, 24 or 32 bytes", ErrInvalid))
		}
	}
	if c.Posts.APIURL != "" {
		u, err := url.Parse(c.Posts.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: posts.api_url must be an absolute URL", ErrInvalid))
		}
	}
	switch c.Posts.ResolvedBackend() {
	case PostsBackendMemory:
	case PostsBackendREST:
		if c.Posts.APIURL == "" {
			errs = append(errs, fmt.Errorf("%w: posts.api_url is required for the rest backend", ErrInvalid))
		}
	case PostsBackendFirestore:
		if c.Firebase.ProjectID == "" {
			errs = append(errs, fmt.Errorf("%w: firebase.project_id is required for the firestore backend", ErrInvalid))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: posts.backend must be memory, rest or firestore", ErrInvalid))
	}
	seen := map[string]bool{}
	for i, p := range c.Register.Providers {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("%w: register.providers[%d].id is required", ErrInvalid, i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("%w: register.providers[%d].id %q is duplicated", ErrInvalid, i, id))
		}
		seen[id] = true
	}

	return errors.Join(errs...)
}

// IsLocal reports whether the console runs on a developer machine.
func (c Config) IsLocal() bool {
	switch strings.ToLower(strings.TrimSpace(c.Server.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// DecodedHashKey decodes the session hash key.
func (s SessionConfig) DecodedHashKey() []byte {
	key, _ := decodeKey(s.HashKey)
	return key
}

// DecodedBlockKey decodes the session block key.
func (s SessionConfig) DecodedBlockKey() []byte {
	key, _ := decodeKey(s.BlockKey)
	return key
}

func decodeKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if key, err := base64.StdEncoding.DecodeString(value); err == nil {
		return key, nil
	}
	return base64.RawURLEncoding.DecodeString(value)
}

func mergeProviders(existing []ProviderConfig, ids []string) []ProviderConfig {
	byID := make(map[string]ProviderConfig, len(existing))
	for _, p := range existing {
		byID[p.ID] = p
	}
	out := make([]ProviderConfig, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, ProviderConfig{ID: id})
	}
	return out
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
