package aclfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	d, err := Load(filepath.Join(dir, "denylist.txt"))
	require.NoError(t, err)
	assert.False(t, d.Denied("1.2.3.4"))
}

func TestLoadParsesEntriesSkippingCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.txt")
	writeFile(t, path, "1.2.3.4\n# comment\n\n5.6.7.8\n")

	d, err := Load(path)
	require.NoError(t, err)
	assert.True(t, d.Denied("1.2.3.4"))
	assert.True(t, d.Denied("5.6.7.8"))
	assert.False(t, d.Denied("9.9.9.9"))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "denylist.txt")
	writeFile(t, path, "1.1.1.1\n")

	d, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, d.Watch())
	defer d.Close()

	assert.True(t, d.Denied("1.1.1.1"))
	assert.False(t, d.Denied("2.2.2.2"))

	writeFile(t, path, "2.2.2.2\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.Denied("2.2.2.2") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.True(t, d.Denied("2.2.2.2"))
}
