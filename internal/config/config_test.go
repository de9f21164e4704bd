package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(c *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(fs)
	return fs
}

func envOf(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func Test_Config_LoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, StoreMemory, c.Store.Driver)
	assert.Equal(t, RegistryMemory, c.Registry.Backend)
	assert.Equal(t, "hs256", c.Token.Method)
	assert.Equal(t, 10*time.Minute, c.Token.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, c.Token.RefreshTTL)
	assert.Equal(t, "compressToEncodedURIComponent", c.Pager.CursorMode)
	assert.Equal(t, 100, c.Pager.MaxLimit)
	assert.Equal(t, "reuse", c.RefreshPolicy)
	assert.Equal(t, LogFormatText, c.LogFormat)
	require.NoError(t, c.Validate())
}

func Test_EnvName(t *testing.T) {
	assert.Equal(t, "DOCPAGER_STORE_DSN", EnvName("store-dsn"))
	assert.Equal(t, "DOCPAGER_LOOKAHEAD", EnvName("lookahead"))
}

func Test_ApplyEnv(t *testing.T) {
	var c Config
	c.LoadDefaults()
	fs := newFlagSet(&c)

	require.NoError(t, fs.Parse([]string{"--store-driver", "mysql"}))
	require.NoError(t, ApplyEnv(fs, envOf(map[string]string{
		"DOCPAGER_STORE_DRIVER":  "postgres",
		"DOCPAGER_STORE_DSN":     " user:pass@tcp(localhost:3306)/db ",
		"DOCPAGER_ACCESS_TTL":    "1m",
		"DOCPAGER_LOOKAHEAD":     "true",
		"DOCPAGER_MAX_LIMIT":     "50",
		"DOCPAGER_REGISTRY":      "redis",
		"DOCPAGER_REFRESH_POLICY": "single-use",
	})))

	assert.Equal(t, "mysql", c.Store.Driver)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/db", c.Store.DSN)
	assert.Equal(t, time.Minute, c.Token.AccessTTL)
	assert.True(t, c.Pager.Lookahead)
	assert.Equal(t, 50, c.Pager.MaxLimit)
	assert.Equal(t, RegistryRedis, c.Registry.Backend)
	assert.Equal(t, "single-use", c.RefreshPolicy)
	require.NoError(t, c.Validate())
}

func Test_ApplyEnv_InvalidValue(t *testing.T) {
	var c Config
	c.LoadDefaults()
	fs := newFlagSet(&c)

	err := ApplyEnv(fs, envOf(map[string]string{
		"DOCPAGER_ACCESS_TTL": "soon",
		"DOCPAGER_REDIS_DB":   "zero",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCPAGER_ACCESS_TTL")
	assert.Contains(t, err.Error(), "DOCPAGER_REDIS_DB")
}

func Test_Config_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "unknown driver", modify: func(c *Config) { c.Store.Driver = "mongo" }},
		{name: "sql without dsn", modify: func(c *Config) { c.Store.Driver = "postgres" }},
		{name: "unknown registry", modify: func(c *Config) { c.Registry.Backend = "etcd" }},
		{name: "redis without address", modify: func(c *Config) {
			c.Registry.Backend = RegistryRedis
			c.Registry.RedisAddr = ""
		}},
		{name: "store registry without collection", modify: func(c *Config) {
			c.Registry.Backend = RegistryStore
			c.Registry.Collection = ""
		}},
		{name: "hs256 without secret", modify: func(c *Config) { c.Token.Secret = "" }},
		{name: "ed25519 without keys", modify: func(c *Config) { c.Token.Method = "ed25519" }},
		{name: "unknown method", modify: func(c *Config) { c.Token.Method = "none" }},
		{name: "zero ttl", modify: func(c *Config) { c.Token.RefreshTTL = 0 }},
		{name: "unknown cursor mode", modify: func(c *Config) { c.Pager.CursorMode = "gzip" }},
		{name: "binary cursor mode", modify: func(c *Config) { c.Pager.CursorMode = "compress" }},
		{name: "negative max limit", modify: func(c *Config) { c.Pager.MaxLimit = -1 }},
		{name: "unknown refresh policy", modify: func(c *Config) { c.RefreshPolicy = "rotate" }},
		{name: "unknown log format", modify: func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.modify(&c)

			require.Error(t, c.Validate())
		})
	}
}
