package repository

import (
	"fmt"

	"mate_chat/internal/config"
	"mate_chat/pkg/logger"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
)

type Repositories struct {
	User      UserRepository
	Message   MessageRepository
	RateLimit RateLimitRepository
}

// Backends holds the opened connections. Only those needed by the selected
// storage driver and by rate limiting must be set.
type Backends struct {
	Postgres DB
	Redis    *redis.Client
	Badger   *badger.DB
}

func NewRepositories(cfg *config.Config, b Backends, log logger.Logger) (*Repositories, error) {
	repos := &Repositories{}

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		if b.Postgres == nil {
			return nil, fmt.Errorf("postgres storage requires a database pool")
		}
		repos.Message = NewChatRepository(b.Postgres, log)
		repos.User = NewUserRepository(b.Postgres, log)
	case config.StorageDriverRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("redis storage requires a redis client")
		}
		repos.Message = NewRedisChatRepository(b.Redis, cfg.Storage.RedisTTL, log)
	case config.StorageDriverBadger:
		if b.Badger == nil {
			return nil, fmt.Errorf("badger storage requires an open database")
		}
		message, err := NewBadgerChatRepository(b.Badger, log)
		if err != nil {
			return nil, err
		}
		repos.Message = message
	case config.StorageDriverMemory:
		repos.Message = NewMemoryChatRepository()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	// Аккаунты хранятся в PostgreSQL, для остальных драйверов - в памяти
	if repos.User == nil {
		if b.Postgres != nil {
			repos.User = NewUserRepository(b.Postgres, log)
		} else {
			repos.User = NewMemoryUserRepository()
			log.Warn("User accounts are kept in memory", "storage_driver", cfg.Storage.Driver)
		}
	}

	if cfg.RateLimit.Enabled && b.Redis != nil {
		repos.RateLimit = NewRateLimitRepository(b.Redis, log)
	}

	log.Info("Repositories initialized", "storage_driver", cfg.Storage.Driver, "rate_limit", repos.RateLimit != nil)
	return repos, nil
}
