package draftstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"admissions-wizard/internal/common/config"
	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestDraft() *models.ApplicationDraft {
	id := int64(12)
	d := models.NewDraft(models.InstitutionUniversity)
	d.ApplicationRef = "APP-0F0F0F0F"
	d.FirstName = "Kevin"
	d.Email = "kevin@example.com"
	d.ProgramID = &id
	d.Intake = models.IntakeJanuary
	d.ApplicationType = models.ApplicationTypeSponsored
	d.SponsorDetails = "HELB"
	d.EducationHistory = []models.EducationEntry{{Level: "Secondary", Year: "2020"}}
	d.AcademicCerts = []string{"uploads/a.pdf", "uploads/b.pdf"}
	d.PrivacyConsent = true
	return d
}

type backendCase struct {
	name    string
	backend func(t *testing.T) (Backend, func(key string, raw []byte))
}

// backendCases returns every backend that can run without external services,
// each with a hook that writes raw bytes under a key.
func backendCases() []backendCase {
	return []backendCase{
		{
			name: "memory",
			backend: func(t *testing.T) (Backend, func(string, []byte)) {
				m := NewMemory()
				return m, m.Put
			},
		},
		{
			name: "file",
			backend: func(t *testing.T) (Backend, func(string, []byte)) {
				fs := afero.NewMemMapFs()
				f, err := NewFile(fs, "/var/drafts")
				require.NoError(t, err)
				return f, func(key string, raw []byte) {
					require.NoError(t, afero.WriteFile(fs, "/var/drafts/"+fileName(key), raw, 0o600))
				}
			},
		},
		{
			name: "redis",
			backend: func(t *testing.T) (Backend, func(string, []byte)) {
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close() })
				return NewRedis(client, time.Hour), func(key string, raw []byte) {
					require.NoError(t, mr.Set(key, string(raw)))
				}
			},
		},
	}
}

// ==========================
// Repository Contract Tests
// ==========================

func TestRepository_Contract(t *testing.T) {
	ctx := context.Background()

	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			t.Run("empty slot loads nothing", func(t *testing.T) {
				backend, _ := bc.backend(t)
				got, err := backend.Repository("drafts:empty").Load(ctx, models.InstitutionUniversity)
				assert.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("round trip", func(t *testing.T) {
				backend, _ := bc.backend(t)
				repo := backend.Repository("drafts:s1")
				want := createTestDraft()

				require.NoError(t, repo.Save(ctx, want))
				got, err := repo.Load(ctx, models.InstitutionUniversity)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})

			t.Run("other institution is ignored", func(t *testing.T) {
				backend, _ := bc.backend(t)
				repo := backend.Repository("drafts:s2")
				require.NoError(t, repo.Save(ctx, createTestDraft()))

				got, err := repo.Load(ctx, models.InstitutionCollege)
				assert.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("malformed data is absence", func(t *testing.T) {
				backend, put := bc.backend(t)
				put("drafts:s3", []byte(`{"institution":"university","programId":"x"`))

				got, err := backend.Repository("drafts:s3").Load(ctx, models.InstitutionUniversity)
				assert.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("last write wins", func(t *testing.T) {
				backend, _ := bc.backend(t)
				tabA := backend.Repository("drafts:shared")
				tabB := backend.Repository("drafts:shared")

				first := createTestDraft()
				second := createTestDraft()
				second.FirstName = "Faith"
				require.NoError(t, tabA.Save(ctx, first))
				require.NoError(t, tabB.Save(ctx, second))

				got, err := tabA.Load(ctx, models.InstitutionUniversity)
				require.NoError(t, err)
				assert.Equal(t, "Faith", got.FirstName)
			})

			t.Run("clear removes only its key", func(t *testing.T) {
				backend, _ := bc.backend(t)
				mine := backend.Repository("drafts:mine")
				other := backend.Repository("drafts:other")
				require.NoError(t, mine.Save(ctx, createTestDraft()))
				require.NoError(t, other.Save(ctx, createTestDraft()))

				require.NoError(t, mine.Clear(ctx))
				require.NoError(t, mine.Clear(ctx), "clearing twice is fine")

				got, err := mine.Load(ctx, models.InstitutionUniversity)
				assert.NoError(t, err)
				assert.Nil(t, got)
				got, err = other.Load(ctx, models.InstitutionUniversity)
				assert.NoError(t, err)
				assert.NotNil(t, got)
			})

			t.Run("nil draft is rejected", func(t *testing.T) {
				backend, _ := bc.backend(t)
				assert.Error(t, backend.Repository("drafts:nil").Save(ctx, nil))
			})
		})
	}
}

// ==========================
// Backend Specific Tests
// ==========================

func TestRedis_UsesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewRedis(client, 30*time.Minute).Repository("application_draft:abc")
	require.NoError(t, repo.Save(context.Background(), createTestDraft()))

	assert.Equal(t, 30*time.Minute, mr.TTL("application_draft:abc"))
}

func TestRedis_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedis(client, 0).Repository("application_draft:abc")
	ctx := context.Background()

	mock.ExpectGet("application_draft:abc").SetErr(errors.New("connection refused"))
	_, err := repo.Load(ctx, models.InstitutionUniversity)
	assertDraftStoreFailed(t, err, "load")

	mock.ExpectDel("application_draft:abc").SetErr(errors.New("connection refused"))
	assertDraftStoreFailed(t, repo.Clear(ctx), "clear")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFile_ReadOnlyFsFailsWrites(t *testing.T) {
	base := afero.NewMemMapFs()
	store, err := NewFile(base, "/drafts")
	require.NoError(t, err)
	require.NoError(t, store.Repository("s1").Save(context.Background(), createTestDraft()))

	readOnly := &File{fs: afero.NewReadOnlyFs(base), dir: "/drafts"}
	repo := readOnly.Repository("s1")

	assertDraftStoreFailed(t, repo.Save(context.Background(), createTestDraft()), "save")
	assertDraftStoreFailed(t, repo.Clear(context.Background()), "clear")

	got, err := repo.Load(context.Background(), models.InstitutionUniversity)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "APP-0F0F0F0F", got.ApplicationRef)
}

func assertDraftStoreFailed(t *testing.T, err error, operation string) {
	t.Helper()
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok, "want a standard error, got %v", err)
	assert.Equal(t, apperrors.ErrCodeDraftStoreFailed, stdErr.Code)
	assert.Equal(t, operation, stdErr.Metadata["operation"])
	assert.True(t, stdErr.Retryable)
}

func TestFile_KeysStayInsideDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFile(fs, "/drafts")
	require.NoError(t, err)

	repo := store.Repository("../../etc/passwd")
	require.NoError(t, repo.Save(context.Background(), createTestDraft()))

	exists, err := afero.Exists(fs, "/drafts/____etc_passwd.json")
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := afero.ReadDir(fs, "/drafts")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFile_RequiresDirectory(t *testing.T) {
	_, err := NewFile(afero.NewMemMapFs(), "")
	assert.Error(t, err)
}

func TestPostgres_Repository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgres(db, "application_drafts")
	repo := store.Repository("application_draft:s9")
	ctx := context.Background()
	draft := createTestDraft()
	payload, err := encode(draft)
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS application_drafts`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.EnsureSchema(ctx))

	mock.ExpectExec(`INSERT INTO application_drafts`).
		WithArgs("application_draft:s9", "university", payload).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(ctx, draft))

	mock.ExpectQuery(`SELECT payload FROM application_drafts WHERE draft_key = \$1`).
		WithArgs("application_draft:s9").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	got, err := repo.Load(ctx, models.InstitutionUniversity)
	require.NoError(t, err)
	assert.Equal(t, draft, got)

	mock.ExpectQuery(`SELECT payload FROM application_drafts`).
		WithArgs("application_draft:s9").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))
	got, err = repo.Load(ctx, models.InstitutionUniversity)
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectExec(`DELETE FROM application_drafts WHERE draft_key = \$1`).
		WithArgs("application_draft:s9").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Clear(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgres(db, "drafts; DROP TABLE users").Repository("k")
	ctx := context.Background()

	mock.ExpectQuery(`SELECT payload FROM application_drafts`).
		WillReturnError(errors.New("connection reset"))
	_, err = repo.Load(ctx, models.InstitutionUniversity)
	assertDraftStoreFailed(t, err, "load")

	mock.ExpectExec(`INSERT INTO application_drafts`).
		WillReturnError(errors.New("connection reset"))
	assertDraftStoreFailed(t, repo.Save(ctx, createTestDraft()), "save")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Factory Tests
// ==========================

func TestFactory_ForSession(t *testing.T) {
	mem := NewMemory()
	factory := NewFactory(mem, "application_draft")
	ctx := context.Background()

	require.NoError(t, factory.ForSession("abc").Save(ctx, createTestDraft()))

	_, ok := mem.Raw("application_draft:abc")
	assert.True(t, ok)
	got, err := factory.ForSession("xyz").Load(ctx, models.InstitutionUniversity)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, "memory", factory.Backend().Name())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "application_draft:abc", Key("application_draft", "abc"))
	assert.Equal(t, "application_draft:abc", Key("application_draft:", "abc"))
	assert.Equal(t, "abc", Key("", "abc"))
}

func TestNew(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	tests := []struct {
		name     string
		cfg      config.DraftStoreConfig
		clients  Clients
		wantName string
		wantErr  bool
	}{
		{name: "memory", cfg: config.DraftStoreConfig{Backend: "memory"}, wantName: "memory"},
		{name: "file", cfg: config.DraftStoreConfig{Backend: "file", Directory: "/d"}, clients: Clients{Fs: afero.NewMemMapFs()}, wantName: "file"},
		{name: "redis", cfg: config.DraftStoreConfig{Backend: "redis", TTL: 60}, clients: Clients{Redis: client}, wantName: "redis"},
		{name: "postgres", cfg: config.DraftStoreConfig{Backend: "postgres", Table: "t"}, clients: Clients{Postgres: db}, wantName: "postgres"},
		{name: "redis without client", cfg: config.DraftStoreConfig{Backend: "redis"}, wantErr: true},
		{name: "postgres without db", cfg: config.DraftStoreConfig{Backend: "postgres"}, wantErr: true},
		{name: "unknown", cfg: config.DraftStoreConfig{Backend: "s3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.cfg, tt.clients)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, f.Backend().Name())
		})
	}
}
