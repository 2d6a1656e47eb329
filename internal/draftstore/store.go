// Package draftstore keeps in-progress application drafts. Every backend
// stores one JSON document per key and hands out repositories bound to a
// single key; the last write wins.
package draftstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

// Repository is the slot for one draft.
type Repository interface {
	Load(ctx context.Context, institution models.Institution) (*models.ApplicationDraft, error)
	Save(ctx context.Context, draft *models.ApplicationDraft) error
	Clear(ctx context.Context) error
}

// Backend hands out repositories by key.
type Backend interface {
	Name() string
	Repository(key string) Repository
}

// Clients carries the shared connections a backend may need.
type Clients struct {
	Redis    *redis.Client
	Postgres *sql.DB
	Fs       afero.Fs
}

// Factory derives per-session repositories from a backend.
type Factory struct {
	backend Backend
	prefix  string
}

func NewFactory(backend Backend, prefix string) *Factory {
	return &Factory{backend: backend, prefix: prefix}
}

// New picks the backend configured in cfg.
func New(cfg config.DraftStoreConfig, clients Clients) (*Factory, error) {
	var backend Backend
	switch cfg.Backend {
	case config.DraftBackendMemory:
		backend = NewMemory()
	case config.DraftBackendFile:
		fs := clients.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		file, err := NewFile(fs, cfg.Directory)
		if err != nil {
			return nil, err
		}
		backend = file
	case config.DraftBackendRedis:
		if clients.Redis == nil {
			return nil, fmt.Errorf("redis draft store requires a redis client")
		}
		backend = NewRedis(clients.Redis, time.Duration(cfg.TTL)*time.Second)
	case config.DraftBackendPostgres:
		if clients.Postgres == nil {
			return nil, fmt.Errorf("postgres draft store requires a database")
		}
		backend = NewPostgres(clients.Postgres, cfg.Table)
	default:
		return nil, fmt.Errorf("unknown draft store backend %q", cfg.Backend)
	}
	return NewFactory(backend, cfg.KeyPrefix), nil
}

// Backend returns the underlying backend.
func (f *Factory) Backend() Backend {
	return f.backend
}

// ForSession returns the repository for one wizard session.
func (f *Factory) ForSession(sessionID string) Repository {
	return f.backend.Repository(Key(f.prefix, sessionID))
}

// Key joins prefix and id.
func Key(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return strings.TrimSuffix(prefix, ":") + ":" + id
}

func encode(draft *models.ApplicationDraft) ([]byte, error) {
	if draft == nil {
		return nil, fmt.Errorf("draft is nil")
	}
	return json.Marshal(draft)
}

// decode returns nil for unparsable data and for drafts of another
// institution.
func decode(data []byte, institution models.Institution) *models.ApplicationDraft {
	if len(data) == 0 {
		return nil
	}
	var draft models.ApplicationDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil
	}
	if draft.Institution != institution {
		return nil
	}
	return &draft
}
