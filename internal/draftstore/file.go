package draftstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// File keeps one JSON file per key in a directory.
type File struct {
	fs  afero.Fs
	dir string
}

func NewFile(fs afero.Fs, dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("draft directory is empty")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create draft directory: %w", err)
	}
	return &File{fs: fs, dir: dir}, nil
}

func (f *File) Name() string { return "file" }

func (f *File) Repository(key string) Repository {
	return &fileRepository{store: f, path: filepath.Join(f.dir, fileName(key))}
}

// fileName maps a key onto a single path element.
func fileName(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key) + ".json"
}

type fileRepository struct {
	store *File
	path  string
}

func (r *fileRepository) Load(ctx context.Context, institution models.Institution) (*models.ApplicationDraft, error) {
	data, err := afero.ReadFile(r.store.fs, r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewDraftStoreFailedError("load", err)
	}
	return decode(data, institution), nil
}

// Save writes to a temporary file and renames it over the old one so a
// reader never sees a half-written draft.
func (r *fileRepository) Save(ctx context.Context, draft *models.ApplicationDraft) error {
	data, err := encode(draft)
	if err != nil {
		return err
	}
	tmp := r.path + "." + uuid.NewString() + ".tmp"
	if err := afero.WriteFile(r.store.fs, tmp, data, 0o600); err != nil {
		return errors.NewDraftStoreFailedError("save", err)
	}
	if err := r.store.fs.Rename(tmp, r.path); err != nil {
		_ = r.store.fs.Remove(tmp)
		return errors.NewDraftStoreFailedError("save", err)
	}
	return nil
}

func (r *fileRepository) Clear(ctx context.Context) error {
	if err := r.store.fs.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return errors.NewDraftStoreFailedError("clear", err)
	}
	return nil
}
