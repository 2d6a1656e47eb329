package draftstore

import (
	"context"
	stderrors "errors"
	"time"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"

	"github.com/redis/go-redis/v9"
)

// Redis keeps drafts as plain string values. A zero TTL keeps them until
// they are overwritten or cleared.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Repository(key string) Repository {
	return &redisRepository{store: r, key: key}
}

type redisRepository struct {
	store *Redis
	key   string
}

func (r *redisRepository) Load(ctx context.Context, institution models.Institution) (*models.ApplicationDraft, error) {
	data, err := r.store.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.NewDraftStoreFailedError("load", err)
	}
	return decode(data, institution), nil
}

func (r *redisRepository) Save(ctx context.Context, draft *models.ApplicationDraft) error {
	data, err := encode(draft)
	if err != nil {
		return err
	}
	if err := r.store.client.Set(ctx, r.key, data, r.store.ttl).Err(); err != nil {
		return errors.NewDraftStoreFailedError("save", err)
	}
	return nil
}

func (r *redisRepository) Clear(ctx context.Context) error {
	if err := r.store.client.Del(ctx, r.key).Err(); err != nil {
		return errors.NewDraftStoreFailedError("clear", err)
	}
	return nil
}
