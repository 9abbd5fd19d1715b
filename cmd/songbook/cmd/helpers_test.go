package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/songbook/internal/song"
)

const amazingGrace = `Amazing Grace
Author: John Newton
Year: 1779

Verse 1
Amazing grace how sweet the sound
That saved a wretch like me

Verse 2
Twas grace that taught my heart to fear
`

const beThouMyVision = `Be Thou My Vision
Author: Dallan Forgaill

Be thou my vision O Lord of my heart
Naught be all else to me save that thou art
`

// isolate points HOME and the config directory at temp dirs and clears
// SONGBOOK_* overrides, returning a fresh library directory.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"SONGBOOK_DATA_DIR", "SONGBOOK_STORE_BACKEND", "SONGBOOK_SQLITE_DRIVER",
		"SONGBOOK_INDEX_BACKEND", "SONGBOOK_QUERY_CACHE_SIZE", "SONGBOOK_CACHE_POLICY",
		"SONGBOOK_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return filepath.Join(t.TempDir(), "library")
}

// syncBuffer is a bytes.Buffer safe for a command writing from another
// goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCLIContext(ctx context.Context, dataDir string, stdout, stderr *syncBuffer, args ...string) error {
	root := NewRootCmd()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(append([]string{"--data-dir", dataDir, "--plain"}, args...))
	return root.ExecuteContext(ctx)
}

// runCLI executes one command line against dataDir.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	err := runCLIContext(context.Background(), dataDir, stdout, stderr, args...)
	return stdout.String(), err
}

func writeSongFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// listSongs returns the library contents via list --json.
func listSongs(t *testing.T, dataDir string) []*song.View {
	t.Helper()
	out, err := runCLI(t, dataDir, "list", "--json")
	require.NoError(t, err)
	var views []*song.View
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	return views
}

// importSamples imports both sample songs and returns them in list order.
func importSamples(t *testing.T, dataDir string) []*song.View {
	t.Helper()
	src := t.TempDir()
	writeSongFile(t, src, "grace.txt", amazingGrace)
	writeSongFile(t, src, "vision.txt", beThouMyVision)
	_, err := runCLI(t, dataDir, "import", src)
	require.NoError(t, err)

	views := listSongs(t, dataDir)
	require.Len(t, views, 2)
	return views
}
