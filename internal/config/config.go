// Package config handles runtime configuration of the docpager CLI:
// defaults, environment overlay and command-line flags.
//
// Every flag can also be set with an environment variable named after it,
// e.g. --store-dsn and DOCPAGER_STORE_DSN. Flags given on the command line
// win over the environment, which wins over defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Alp4ka/docpager"
	"github.com/Alp4ka/docpager/auth"
	"github.com/Alp4ka/docpager/gormstore"
	"github.com/Alp4ka/docpager/token"
)

const EnvPrefix = "DOCPAGER_"

const (
	StoreMemory = "memory"

	RegistryMemory = "memory"
	RegistryRedis  = "redis"
	RegistryStore  = "store"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

type (
	Config struct {
		Store    StoreConfig
		Registry RegistryConfig
		Token    TokenConfig
		Pager    PagerConfig
		// RefreshPolicy is "reuse" or "single-use".
		RefreshPolicy string
		LogLevel      int
		LogFormat     string
	}

	StoreConfig struct {
		// Driver is memory, postgres or mysql.
		Driver string
		DSN    string
	}

	RegistryConfig struct {
		// Backend is memory, redis or store.
		Backend       string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		RedisPrefix   string
		RedisTTL      time.Duration
		// Collection holds registrations of the store backend.
		Collection string
	}

	TokenConfig struct {
		Method string
		// Secret is the HS256 key.
		Secret string
		// PrivateKeyFile and PublicKeyFile are PEM encoded Ed25519 keys.
		PrivateKeyFile string
		PublicKeyFile  string
		AccessTTL      time.Duration
		RefreshTTL     time.Duration
		Issuer         string
	}

	PagerConfig struct {
		CursorMode        string
		MaxLimit          int
		Lookahead         bool
		SingleFieldResume bool
	}
)

// LoadDefaults populates Config with development defaults.
// NOTE: the token secret is insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.Store = StoreConfig{Driver: StoreMemory}
	c.Registry = RegistryConfig{
		Backend:     RegistryMemory,
		RedisAddr:   "localhost:6379",
		RedisPrefix: "docpager:refresh",
		Collection:  "refresh_tokens",
	}
	c.Token = TokenConfig{
		Method:     string(token.MethodHS256),
		Secret:     "secretKey",
		AccessTTL:  token.DefaultAccessTTL,
		RefreshTTL: token.DefaultRefreshTTL,
		Issuer:     "docpager",
	}
	c.Pager = PagerConfig{
		CursorMode: string(docpager.ModeCompressURI),
		MaxLimit:   docpager.MaxLimit,
	}
	c.RefreshPolicy = auth.ReuseRefresh.String()
	c.LogLevel = 0
	c.LogFormat = LogFormatText
}

// BindFlags registers a flag for every setting on fs, defaulting to the
// current values of c.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Store.Driver, "store-driver", c.Store.Driver, "document store: memory, postgres or mysql")
	fs.StringVar(&c.Store.DSN, "store-dsn", c.Store.DSN, "document store DSN")

	fs.StringVar(&c.Registry.Backend, "registry", c.Registry.Backend, "refresh token registry: memory, redis or store")
	fs.StringVar(&c.Registry.RedisAddr, "redis-addr", c.Registry.RedisAddr, "redis address")
	fs.StringVar(&c.Registry.RedisPassword, "redis-password", c.Registry.RedisPassword, "redis password")
	fs.IntVar(&c.Registry.RedisDB, "redis-db", c.Registry.RedisDB, "redis database")
	fs.StringVar(&c.Registry.RedisPrefix, "redis-prefix", c.Registry.RedisPrefix, "redis key prefix")
	fs.DurationVar(&c.Registry.RedisTTL, "redis-ttl", c.Registry.RedisTTL, "lifetime of a user's token set after the last login, 0 keeps it forever")
	fs.StringVar(&c.Registry.Collection, "registry-collection", c.Registry.Collection, "collection of the store registry")

	fs.StringVar(&c.Token.Method, "token-method", c.Token.Method, "signing method: hs256 or ed25519")
	fs.StringVar(&c.Token.Secret, "token-secret", c.Token.Secret, "hs256 secret")
	fs.StringVar(&c.Token.PrivateKeyFile, "token-private-key", c.Token.PrivateKeyFile, "ed25519 private key PEM file")
	fs.StringVar(&c.Token.PublicKeyFile, "token-public-key", c.Token.PublicKeyFile, "ed25519 public key PEM file")
	fs.DurationVar(&c.Token.AccessTTL, "access-ttl", c.Token.AccessTTL, "access token lifetime")
	fs.DurationVar(&c.Token.RefreshTTL, "refresh-ttl", c.Token.RefreshTTL, "refresh token lifetime")
	fs.StringVar(&c.Token.Issuer, "token-issuer", c.Token.Issuer, "token issuer claim")

	fs.StringVar(&c.Pager.CursorMode, "cursor-mode", c.Pager.CursorMode, "cursor transform: direct, compressToUTF16, compressToBase64 or compressToEncodedURIComponent")
	fs.IntVar(&c.Pager.MaxLimit, "max-limit", c.Pager.MaxLimit, "maximum page size, 0 lifts the bound")
	fs.BoolVar(&c.Pager.Lookahead, "lookahead", c.Pager.Lookahead, "fetch one extra document to detect the last page")
	fs.BoolVar(&c.Pager.SingleFieldResume, "single-field-resume", c.Pager.SingleFieldResume, "reject cursors recorded over more than one sort field")

	fs.StringVar(&c.RefreshPolicy, "refresh-policy", c.RefreshPolicy, "refresh token policy: reuse or single-use")
	fs.IntVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity, 1 enables debug logs")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
}

// ApplyEnv sets every flag of fs that was not given on the command line from
// its environment variable, if present. lookup is usually os.LookupEnv.
func ApplyEnv(fs *pflag.FlagSet, lookup func(string) (string, bool)) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}

		name := EnvName(f.Name)
		value, ok := lookup(name)
		if !ok {
			return
		}
		if err := fs.Set(f.Name, strings.TrimSpace(value)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	})

	return errors.Join(errs...)
}

// EnvName returns the environment variable of flag, e.g. DOCPAGER_STORE_DSN.
func EnvName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreMemory:
	case gormstore.DriverPostgres, gormstore.DriverMySQL:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store DSN is required for %s", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store driver '%s'", c.Store.Driver))
	}

	switch c.Registry.Backend {
	case RegistryMemory:
	case RegistryRedis:
		if c.Registry.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required"))
		}
		if c.Registry.RedisTTL < 0 {
			errs = append(errs, errors.New("redis TTL must not be negative"))
		}
	case RegistryStore:
		if c.Registry.Collection == "" {
			errs = append(errs, errors.New("registry collection is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported registry '%s'", c.Registry.Backend))
	}

	switch token.Method(c.Token.Method) {
	case token.MethodHS256:
		if c.Token.Secret == "" {
			errs = append(errs, errors.New("hs256 requires a token secret"))
		}
	case token.MethodEd25519:
		if c.Token.PrivateKeyFile == "" && c.Token.PublicKeyFile == "" {
			errs = append(errs, errors.New("ed25519 requires a private or public key file"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported token method '%s'", c.Token.Method))
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	// cursors are printed inside JSON, which only carries valid UTF-8
	if mode, err := docpager.ParseMode(c.Pager.CursorMode); err != nil {
		errs = append(errs, err)
	} else if mode == docpager.ModeCompress {
		errs = append(errs, fmt.Errorf("cursor mode '%s' is binary and cannot be printed", mode))
	}
	if c.Pager.MaxLimit < 0 {
		errs = append(errs, errors.New("max limit must not be negative"))
	}

	if _, err := auth.ParseRefreshPolicy(c.RefreshPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		errs = append(errs, fmt.Errorf("unsupported log format '%s'", c.LogFormat))
	}

	return errors.Join(errs...)
}
