package draftstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/PulseNet/internal/intake"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, intake.ErrNotFound)

	require.NoError(t, s.Save(ctx, "a", []byte(`{"language":"en"}`)))
	require.NoError(t, s.Save(ctx, "b", []byte(`{"language":"hi"}`)))
	require.NoError(t, s.Save(ctx, "a", []byte(`{"language":"ta"}`)))

	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"language":"ta"}`, string(got))

	got, err = s.Load(ctx, "b")
	require.NoError(t, err)
	assert.JSONEq(t, `{"language":"hi"}`, string(got))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drafts.json")
	f, err := NewFile(path)
	require.NoError(t, err)
	exerciseStore(t, f)
	require.NoError(t, f.Ping(context.Background()))

	// a second handle on the same path sees the same drafts
	again, err := NewFile(path)
	require.NoError(t, err)
	got, err := again.Load(context.Background(), "b")
	require.NoError(t, err)
	assert.JSONEq(t, `{"language":"hi"}`, string(got))
}

func TestFileRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	f, err := NewFile(path)
	require.NoError(t, err)
	_, err = f.Load(context.Background(), "a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, intake.ErrNotFound)
}

func TestStoreBacksIntakeStore(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s, err := intake.Open(ctx, mem, intake.Key("doc-1"))
	require.NoError(t, err)

	name := "Asha"
	require.NoError(t, s.SetPatientField(ctx, intake.PatientPatch{Name: &name}))

	reopened, err := intake.Open(ctx, mem, intake.Key("doc-1"))
	require.NoError(t, err)
	assert.Equal(t, "Asha", reopened.Record().Name)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, Config{Kind: KindMemory})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &Memory{}, s)

	s, closeFn, err = Open(ctx, Config{Kind: KindFile, FilePath: filepath.Join(t.TempDir(), "d.json")})
	require.NoError(t, err)
	defer closeFn()
	_, ok := s.(HealthChecker)
	assert.True(t, ok)

	_, _, err = Open(ctx, Config{Kind: "etcd"})
	assert.Error(t, err)
}

func TestPostgresRequiresValidURL(t *testing.T) {
	_, err := Connect(context.Background(), "://not-a-url", 0, 0)
	assert.Error(t, err)
}

func TestRedisRequiresValidURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "http://localhost:6379")
	assert.Error(t, err)
}
