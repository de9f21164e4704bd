// Package app assembles the docpager runtime from a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/Alp4ka/docpager"
	"github.com/Alp4ka/docpager/auth"
	"github.com/Alp4ka/docpager/gormstore"
	"github.com/Alp4ka/docpager/internal/config"
	"github.com/Alp4ka/docpager/memstore"
	"github.com/Alp4ka/docpager/registry"
	"github.com/Alp4ka/docpager/token"
)

const redisPingTimeout = 3 * time.Second

// App holds the wired components. Close releases the connections it opened.
type App struct {
	Store    docpager.Store
	Registry registry.Registry
	Issuer   *token.Issuer
	Pager    *docpager.Pager
	Auth     *auth.Service
	Log      logr.Logger

	close func() error
}

func New(ctx context.Context, cfg config.Config, log logr.Logger) (*App, error) {
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	store, closeStore, err := initializeStore(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	reg, closeRegistry, err := initializeRegistry(ctx, cfg.Registry, store)
	if err != nil {
		return nil, errors.Join(err, closeStore())
	}
	closeAll := joinClosers(closeStore, closeRegistry)

	issuer, err := initializeIssuer(cfg.Token)
	if err != nil {
		return nil, errors.Join(err, closeAll())
	}

	mode, err := docpager.ParseMode(cfg.Pager.CursorMode)
	if err != nil {
		return nil, errors.Join(err, closeAll())
	}
	pagerOpts := []docpager.Option{
		docpager.WithCodec(docpager.NewCodec(mode, log)),
		docpager.WithLogger(log),
		docpager.WithMaxLimit(cfg.Pager.MaxLimit),
	}
	if cfg.Pager.Lookahead {
		pagerOpts = append(pagerOpts, docpager.WithLookahead())
	}
	if cfg.Pager.SingleFieldResume {
		pagerOpts = append(pagerOpts, docpager.WithSingleFieldResume())
	}
	pager := docpager.NewPager(store, pagerOpts...)

	policy, err := auth.ParseRefreshPolicy(cfg.RefreshPolicy)
	if err != nil {
		return nil, errors.Join(err, closeAll())
	}
	svc := auth.NewService(store, pager, issuer, reg,
		auth.WithLogger(log),
		auth.WithRefreshPolicy(policy),
		auth.WithTokenOptions(token.WithAccessTTL(cfg.Token.AccessTTL), token.WithRefreshTTL(cfg.Token.RefreshTTL)),
	)

	log.V(1).Info("App initialized",
		"store", cfg.Store.Driver,
		"registry", cfg.Registry.Backend,
		"tokenMethod", issuer.Method(),
		"refreshPolicy", policy.String(),
	)

	return &App{
		Store:    store,
		Registry: reg,
		Issuer:   issuer,
		Pager:    pager,
		Auth:     svc,
		Log:      log,
		close:    closeAll,
	}, nil
}

func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	err := a.close()
	a.close = nil

	return err
}

func initializeStore(cfg config.StoreConfig, log logr.Logger) (docpager.Store, func() error, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return memstore.New(), noopCloser, nil
	case gormstore.DriverPostgres, gormstore.DriverMySQL:
		store, err := gormstore.Open(gormstore.Config{Driver: cfg.Driver, DSN: cfg.DSN}, gormstore.WithLogger(log.WithName("gorm")))
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver '%s'", cfg.Driver)
	}
}

func initializeRegistry(ctx context.Context, cfg config.RegistryConfig, store docpager.Store) (registry.Registry, func() error, error) {
	switch cfg.Backend {
	case config.RegistryMemory:
		return registry.NewMemory(), noopCloser, nil
	case config.RegistryRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, nil, errors.Join(fmt.Errorf("cannot reach redis at %s: %w", cfg.RedisAddr, err), rdb.Close())
		}

		return registry.NewRedis(rdb, cfg.RedisPrefix, cfg.RedisTTL), rdb.Close, nil
	case config.RegistryStore:
		return registry.NewStore(store, cfg.Collection), noopCloser, nil
	default:
		return nil, nil, fmt.Errorf("unsupported registry '%s'", cfg.Backend)
	}
}

func initializeIssuer(cfg config.TokenConfig) (*token.Issuer, error) {
	tc := token.Config{
		Method:     token.Method(cfg.Method),
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Issuer:     cfg.Issuer,
	}

	switch tc.Method {
	case token.MethodHS256:
		tc.PrivateKey = []byte(cfg.Secret)
	case token.MethodEd25519:
		var err error
		if tc.PrivateKey, err = readKeyFile(cfg.PrivateKeyFile); err != nil {
			return nil, err
		}
		if tc.PublicKey, err = readKeyFile(cfg.PublicKeyFile); err != nil {
			return nil, err
		}
	}

	return token.NewIssuer(tc)
}

func readKeyFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read key file: %w", err)
	}

	return data, nil
}

// NewLogger returns a logr.Logger backed by slog writing to w. Verbosity
// level 1 and above enables debug logs.
func NewLogger(w io.Writer, level int, format string) logr.Logger {
	opts := &slog.HandlerOptions{Level: slog.Level(-level)}

	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return logr.FromSlogHandler(handler)
}

func joinClosers(closers ...func() error) func() error {
	return func() error {
		var errs []error

		for i := len(closers) - 1; i >= 0; i-- {
			if closers[i] == nil {
				continue
			}
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	}
}

func noopCloser() error {
	return nil
}
