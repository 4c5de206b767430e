package cli

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/model_layer/internal/auth/pwd"
	"github.com/R3E-Network/model_layer/internal/auth/token"
	"github.com/R3E-Network/model_layer/internal/config"
	"github.com/R3E-Network/model_layer/internal/database"
	"github.com/R3E-Network/model_layer/internal/logging"
	"github.com/R3E-Network/model_layer/internal/model"
	"github.com/R3E-Network/model_layer/internal/session"
)

// Startup pings before giving up on the database.
const connectRetries = 5

// deps are the collaborators built from a validated Config.
type deps struct {
	db       *sqlx.DB
	mm       *model.Manager
	hasher   *pwd.Hasher
	issuer   *token.Issuer
	sessions session.Store

	closers []func() error
}

func openDB(ctx context.Context, cfg config.Config, log *logging.Logger) (*sqlx.DB, error) {
	return database.Open(ctx, database.Options{
		URL:            cfg.DBURL,
		MaxConns:       cfg.DBMaxConns,
		ConnectRetries: connectRetries,
	}, log)
}

func openDeps(ctx context.Context, cfg config.Config, log *logging.Logger) (*deps, error) {
	hasher, err := pwd.NewHasherFromB64(cfg.PwdKey)
	if err != nil {
		return nil, fmt.Errorf("pwd_key: %w", err)
	}
	tokenKey, err := pwd.DecodeKey(cfg.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("token_key: %w", err)
	}
	issuer, err := token.NewIssuer(tokenKey, cfg.TokenDuration)
	if err != nil {
		return nil, fmt.Errorf("token_key: %w", err)
	}

	d := &deps{hasher: hasher, issuer: issuer}

	if cfg.RedisURL != "" {
		store, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
		d.sessions = store
		d.closers = append(d.closers, store.Close)
		log.WithContext(ctx).Info("Sessions stored in Redis")
	} else {
		d.sessions = session.NewMemoryStore()
		log.WithContext(ctx).Warn("No redis_url configured, sessions are kept in memory")
	}

	db, err := openDB(ctx, cfg, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.db = db
	d.mm = model.NewManager(db, cfg.DBAcquireTimeout)
	d.closers = append(d.closers, db.Close)
	return d, nil
}

// Close releases everything openDeps acquired, newest first.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}
