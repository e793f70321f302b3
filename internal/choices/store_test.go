package choices

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/pinrun/internal/clock"
	"github.com/danieljhkim/pinrun/internal/fsops"
	"github.com/danieljhkim/pinrun/internal/hash"
)

var stamp = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "choices")
	return NewFileStore(fsops.NewRealFS(), clock.NewFixed(stamp), dir), dir
}

func TestFileStore_GetAbsent(t *testing.T) {
	store, _ := newStore(t)

	v, ok, err := store.Get("exp1", KeyVersionManaging)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestFileStore_SetFlushReload(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, store.Set("exp1", KeyVersionManaging, FormatBool(true)))
	require.NoError(t, store.Set("exp1", KeyCloning, "y"))
	require.NoError(t, store.Flush("exp1"))

	data, err := os.ReadFile(filepath.Join(dir, "exp1.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "vm: \"true\"")
	assert.Contains(t, string(data), "cloning: \"y\"")
	assert.Contains(t, string(data), "updated_at: 2026-10-18T12:00:00Z")

	reloaded := NewFileStore(fsops.NewRealFS(), clock.NewFixed(stamp), dir)
	v, ok, err := reloaded.Get("exp1", KeyVersionManaging)
	require.NoError(t, err)
	require.True(t, ok)
	enabled, valid := ParseBool(v)
	assert.True(t, valid)
	assert.True(t, enabled)

	v, ok, err = reloaded.Get("exp1", KeyCloning)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "y", v)
}

func TestFileStore_FlushWithoutChangesDoesNotWrite(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, store.Flush("exp1"))
	_, err := os.Stat(filepath.Join(dir, "exp1.yaml"))
	assert.True(t, os.IsNotExist(err), "flushing an untouched context must not create a file")

	require.NoError(t, store.Set("exp1", KeyCloning, "n"))
	require.NoError(t, store.Flush("exp1"))

	path := filepath.Join(dir, "exp1.yaml")
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	// Re-setting the same value and flushing again is a no-op.
	require.NoError(t, store.Set("exp1", KeyCloning, "n"))
	require.NoError(t, store.Flush("exp1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.WithinDuration(t, old, info.ModTime(), time.Second)
}

func TestFileStore_ContextsAreIndependent(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.Set("a", KeyCloning, "y"))
	require.NoError(t, store.Set("b", KeyCloning, "n"))
	require.NoError(t, store.Flush("a"))
	require.NoError(t, store.Flush("b"))

	va, _, _ := store.Get("a", KeyCloning)
	vb, _, _ := store.Get("b", KeyCloning)
	assert.Equal(t, "y", va)
	assert.Equal(t, "n", vb)

	keys, err := store.Contexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, store.Clear("a"))
	_, ok, err := store.Get("a", KeyCloning)
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err = store.Contexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestFileStore_RejectsUnsafeContextKeys(t *testing.T) {
	store, _ := newStore(t)

	for _, key := range []string{"", "..", "a/b", "../escape"} {
		_, _, err := store.Get(key, KeyCloning)
		assert.Error(t, err, "key %q", key)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	store, dir := newStore(t)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("choices: [unterminated"), 0644))

	_, _, err := store.Get("bad", KeyCloning)
	assert.Error(t, err)
}

func TestKeyFromFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte("lr: 0.01\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("lr: 0.01\n"), 0644))

	hasher := hash.NewSHA256Hasher()
	ka, err := KeyFromFile(hasher, a)
	require.NoError(t, err)
	kb, err := KeyFromFile(hasher, b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb, "identical configuration must map to one context")
	assert.Len(t, ka, len("cfg-")+contextKeyLen)
	assert.NoError(t, fsops.NewRealFS().ValidateIdentifier(ka))
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "sweep-lr-0.01", SanitizeKey(" sweep/lr 0.01 "))
	assert.Equal(t, "exp", SanitizeKey("..exp.."))
}

func TestKeyFromPath(t *testing.T) {
	hasher := hash.NewSHA256Hasher()
	k := KeyFromPath(hasher, "/repo/sub")

	assert.Equal(t, k, KeyFromPath(hasher, "/repo/sub"))
	assert.NotEqual(t, k, KeyFromPath(hasher, "/repo"))
	assert.Len(t, k, len("dir-")+contextKeyLen)
}
