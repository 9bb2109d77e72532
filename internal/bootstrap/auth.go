package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/user-auth-api/config"
	"github.com/target/user-auth-api/internal/adapters/password"
	redisadapter "github.com/target/user-auth-api/internal/adapters/redis"
	"github.com/target/user-auth-api/internal/adapters/token"
	"github.com/target/user-auth-api/internal/data"
	"github.com/target/user-auth-api/internal/observability/statsd"
	"github.com/target/user-auth-api/internal/ports"
	"github.com/target/user-auth-api/internal/service"
)

// BuildAuthService wires the auth service from configuration. The Redis
// client may be nil when the session backend is postgres.
func BuildAuthService(cfg config.AppConfig, db *sql.DB, redisClient redis.UniversalClient, logger *slog.Logger) (*service.AuthService, error) {
	codec, err := buildTokenCodec(cfg.Auth)
	if err != nil {
		return nil, err
	}

	sessions, err := buildSessionStore(cfg.Auth, db, redisClient)
	if err != nil {
		return nil, err
	}

	metrics, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.StatsDEnabled,
		Address: cfg.Observability.StatsDAddress,
		Prefix:  cfg.Observability.StatsDPrefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Users:    data.NewUserRepo(db),
		Sessions: sessions,
		Codec:    codec,
		Hasher:   password.NewBcryptHasher(cfg.Auth.BcryptCost),
		TokenTTL: cfg.Auth.TokenTTL,
		Metrics:  metrics,
	}), nil
}

func buildTokenCodec(cfg config.AuthConfig) (*token.Codec, error) {
	keys := map[string][]byte{cfg.KeyID: []byte(cfg.SigningKey)}
	for kid, key := range cfg.PreviousKeys {
		if kid == cfg.KeyID {
			continue
		}
		keys[kid] = []byte(key)
	}

	codec, err := token.New(token.Config{Keys: keys, ActiveKeyID: cfg.KeyID})
	if err != nil {
		return nil, fmt.Errorf("create token codec: %w", err)
	}
	return codec, nil
}

//nolint:ireturn // backend selection decides the concrete store at runtime.
func buildSessionStore(cfg config.AuthConfig, db *sql.DB, redisClient redis.UniversalClient) (ports.SessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("session store %q requires a redis connection", cfg.SessionStore)
		}
		return redisadapter.NewSessionStore(redisClient), nil
	case config.SessionBackendPostgres:
		return data.NewSessionRepo(db), nil
	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.SessionStore)
	}
}
