package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stackpilot/stackpilot/internal/config"
	"github.com/stackpilot/stackpilot/internal/provider"
)

const (
	orgKeyPrefix = "org:"
	orgIndexKey  = "orgs:by-created"
)

// RedisAdapter is the Redis secondary data-store adapter. Records are
// stored as JSON strings with a sorted-set index scored by creation time.
type RedisAdapter struct {
	cfg    config.RedisConfig
	client *redis.Client
}

var _ provider.Adapter = (*RedisAdapter)(nil)

// NewRedisAdapter creates a Redis adapter. The client is established in
// Connect.
func NewRedisAdapter(cfg config.RedisConfig) *RedisAdapter {
	return &RedisAdapter{cfg: cfg}
}

// Name returns the provider id.
func (a *RedisAdapter) Name() string { return ProviderRedis }

// Connect creates the Redis client and verifies it.
func (a *RedisAdapter) Connect(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Addr,
		Password: a.cfg.Password,
		DB:       a.cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	a.client = client
	return nil
}

// Ping verifies the Redis backend is reachable.
func (a *RedisAdapter) Ping(ctx context.Context) error {
	if a.client == nil {
		return errors.New("redis adapter not connected")
	}
	return a.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (a *RedisAdapter) Close() error {
	if a.client != nil {
		err := a.client.Close()
		a.client = nil
		return err
	}
	return nil
}

// Execute runs a storage command against Redis.
func (a *RedisAdapter) Execute(ctx context.Context, payload any) (any, error) {
	cmd, err := decodeCommand(payload)
	if err != nil {
		return nil, err
	}
	if a.client == nil {
		return nil, errors.New("redis adapter not connected")
	}

	switch cmd.Op {
	case OpCreate, OpUpdate:
		return a.upsert(ctx, cmd.Org)
	case OpGet:
		return a.get(ctx, cmd.OrgID)
	case OpList:
		return a.list(ctx, cmd.Limit)
	case OpDelete:
		return a.delete(ctx, cmd.OrgID)
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidCommand, cmd.Op)
	}
}

func (a *RedisAdapter) upsert(ctx context.Context, org *Organization) (*CommandResult, error) {
	data, err := json.Marshal(org)
	if err != nil {
		return nil, fmt.Errorf("marshal organization: %w", err)
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, orgKeyPrefix+org.ID, data, 0)
	pipe.ZAdd(ctx, orgIndexKey, redis.Z{
		Score:  float64(org.CreatedAt.UnixNano()),
		Member: org.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("upsert organization: %w", err)
	}

	return &CommandResult{Org: org, Found: true}, nil
}

func (a *RedisAdapter) get(ctx context.Context, id string) (*CommandResult, error) {
	data, err := a.client.Get(ctx, orgKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &CommandResult{Found: false}, nil
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}

	var org Organization
	if err := json.Unmarshal(data, &org); err != nil {
		return nil, fmt.Errorf("unmarshal organization: %w", err)
	}
	return &CommandResult{Org: &org, Found: true}, nil
}

func (a *RedisAdapter) list(ctx context.Context, limit int) (*CommandResult, error) {
	if limit <= 0 {
		limit = 50
	}

	// Newest first, matching the relational adapter's ordering.
	ids, err := a.client.ZRevRange(ctx, orgIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}

	orgs := make([]*Organization, 0, len(ids))
	for _, id := range ids {
		result, err := a.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if result.Found {
			orgs = append(orgs, result.Org)
		}
	}

	return &CommandResult{Orgs: orgs, Found: true}, nil
}

func (a *RedisAdapter) delete(ctx context.Context, id string) (*CommandResult, error) {
	pipe := a.client.TxPipeline()
	delCmd := pipe.Del(ctx, orgKeyPrefix+id)
	pipe.ZRem(ctx, orgIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("delete organization: %w", err)
	}
	return &CommandResult{Found: delCmd.Val() > 0}, nil
}
