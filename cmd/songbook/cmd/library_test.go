package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/store"
	"github.com/Aman-CERP/songbook/internal/ui"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// When: collecting subcommand names
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	// Then: every library command is registered
	for _, want := range []string{
		"list", "show", "import", "export", "update", "remove",
		"search", "check", "status", "watch", "config", "version",
	} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestImport_ThenListSortedByTitle(t *testing.T) {
	// Given: an empty library
	dataDir := isolate(t)

	// When: importing two song files
	views := importSamples(t, dataDir)

	// Then: list returns both songs, ordered by title
	assert.Equal(t, "Amazing Grace", views[0].Title)
	assert.Equal(t, "John Newton", views[0].Author)
	assert.Equal(t, "Be Thou My Vision", views[1].Title)
	assert.NotEqual(t, views[0].ID, views[1].ID)
}

func TestImport_NoSongFilesIsInvalidInput(t *testing.T) {
	// Given: a directory without song files
	dataDir := isolate(t)
	src := t.TempDir()

	// When: importing it
	_, err := runCLI(t, dataDir, "import", src)

	// Then: the command fails with an input error
	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeInvalidInput, sberrors.GetCode(err))
}

func TestShow_PrintsLyrics(t *testing.T) {
	// Given: a library with two songs
	dataDir := isolate(t)
	views := importSamples(t, dataDir)

	// When: showing the first one
	out, err := runCLI(t, dataDir, "show", strconv.FormatInt(views[0].ID, 10))

	// Then: its metadata and lyrics are printed
	require.NoError(t, err)
	assert.Contains(t, out, "Amazing Grace")
	assert.Contains(t, out, "John Newton")
	assert.Contains(t, out, "Amazing grace how sweet the sound")
}

func TestShow_Errors(t *testing.T) {
	dataDir := isolate(t)
	importSamples(t, dataDir)

	t.Run("invalid id", func(t *testing.T) {
		_, err := runCLI(t, dataDir, "show", "abc")
		require.Error(t, err)
		assert.Equal(t, sberrors.ErrCodeInvalidInput, sberrors.GetCode(err))
	})

	t.Run("non-positive id", func(t *testing.T) {
		_, err := runCLI(t, dataDir, "show", "0")
		require.Error(t, err)
		assert.Equal(t, sberrors.ErrCodeInvalidInput, sberrors.GetCode(err))
	})

	t.Run("missing song", func(t *testing.T) {
		_, err := runCLI(t, dataDir, "show", "999")
		require.Error(t, err)
		assert.Equal(t, sberrors.ErrCodeRecordNotFound, sberrors.GetCode(err))
	})
}

func TestList_FuzzyFilter(t *testing.T) {
	// Given: a library with two songs
	dataDir := isolate(t)
	importSamples(t, dataDir)

	// When: filtering titles fuzzily
	out, err := runCLI(t, dataDir, "list", "--filter", "bethou")

	// Then: only the matching title is listed
	require.NoError(t, err)
	assert.Contains(t, out, "Be Thou My Vision")
	assert.NotContains(t, out, "Amazing Grace")
}

func TestSearch_MatchesLyrics(t *testing.T) {
	// Given: a library with two songs
	dataDir := isolate(t)
	importSamples(t, dataDir)

	// When: searching for a lyric word
	out, err := runCLI(t, dataDir, "search", "wretch")

	// Then: the song containing it is returned
	require.NoError(t, err)
	assert.Contains(t, out, "Amazing Grace")
	assert.NotContains(t, out, "Be Thou My Vision")
}

func TestSearch_EmptyQuery(t *testing.T) {
	// Given: a library
	dataDir := isolate(t)
	importSamples(t, dataDir)

	// When: searching for whitespace
	_, err := runCLI(t, dataDir, "search", "   ")

	// Then: the query is rejected
	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeQueryEmpty, sberrors.GetCode(err))
}

func TestUpdate_ReplacesSong(t *testing.T) {
	// Given: a library and an edited song file
	dataDir := isolate(t)
	views := importSamples(t, dataDir)
	id := strconv.FormatInt(views[0].ID, 10)
	edited := writeSongFile(t, t.TempDir(), "grace.txt",
		strings.Replace(amazingGrace, "wretch", "sinner", 1))

	// When: updating the song from the file
	out, err := runCLI(t, dataDir, "update", id, edited)

	// Then: the song keeps its ID and search sees the new lyrics
	require.NoError(t, err)
	assert.Contains(t, out, "Updated song "+id)

	hits, err := runCLI(t, dataDir, "search", "sinner")
	require.NoError(t, err)
	assert.Contains(t, hits, "Amazing Grace")

	hits, err = runCLI(t, dataDir, "search", "wretch")
	require.NoError(t, err)
	assert.NotContains(t, hits, "Amazing Grace")
}

func TestUpdate_MissingSong(t *testing.T) {
	dataDir := isolate(t)
	importSamples(t, dataDir)
	file := writeSongFile(t, t.TempDir(), "new.txt", amazingGrace)

	t.Run("without add-if-missing", func(t *testing.T) {
		_, err := runCLI(t, dataDir, "update", "999", file)
		require.Error(t, err)
		assert.Equal(t, sberrors.ErrCodeRecordNotFound, sberrors.GetCode(err))
		assert.Len(t, listSongs(t, dataDir), 2)
	})

	t.Run("with add-if-missing", func(t *testing.T) {
		out, err := runCLI(t, dataDir, "update", "999", file, "--add-if-missing")
		require.NoError(t, err)
		assert.Contains(t, out, "Song 999 was missing; added as")
		assert.Len(t, listSongs(t, dataDir), 3)
	})
}

func TestRemove(t *testing.T) {
	dataDir := isolate(t)
	views := importSamples(t, dataDir)

	t.Run("missing id leaves library unchanged", func(t *testing.T) {
		_, err := runCLI(t, dataDir, "remove", strconv.FormatInt(views[0].ID, 10), "999")
		require.Error(t, err)
		assert.Equal(t, sberrors.ErrCodeRecordNotFound, sberrors.GetCode(err))
		assert.Len(t, listSongs(t, dataDir), 2)
	})

	t.Run("removes song", func(t *testing.T) {
		out, err := runCLI(t, dataDir, "remove", strconv.FormatInt(views[0].ID, 10))
		require.NoError(t, err)
		assert.Contains(t, out, "Removed 1 songs")

		left := listSongs(t, dataDir)
		require.Len(t, left, 1)
		assert.Equal(t, "Be Thou My Vision", left[0].Title)

		hits, err := runCLI(t, dataDir, "search", "wretch")
		require.NoError(t, err)
		assert.NotContains(t, hits, "Amazing Grace")
	})
}

func TestRemove_UnreadableSong(t *testing.T) {
	// Given: a library where one stored row no longer decodes
	dataDir := isolate(t)
	views := importSamples(t, dataDir)
	corruptID := views[0].ID

	db, err := sql.Open(store.DriverPureGo, filepath.Join(dataDir, "songs.db"))
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE songs SET theme = '{not json' WHERE id = ?`, corruptID)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.Len(t, listSongs(t, dataDir), 1)

	// When: removing it by ID
	out, err := runCLI(t, dataDir, "remove", strconv.FormatInt(corruptID, 10))

	// Then: the row is gone and the readable song is untouched
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 songs")
	left := listSongs(t, dataDir)
	require.Len(t, left, 1)
	assert.Equal(t, views[1].ID, left[0].ID)

	// And: removing it again reports the missing ID
	_, err = runCLI(t, dataDir, "remove", strconv.FormatInt(corruptID, 10))
	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeRecordNotFound, sberrors.GetCode(err))
}

func TestCheck_ConsistentLibrary(t *testing.T) {
	// Given: a freshly imported library
	dataDir := isolate(t)
	importSamples(t, dataDir)

	// When: checking it
	out, err := runCLI(t, dataDir, "check")

	// Then: the index matches the store
	require.NoError(t, err)
	assert.Contains(t, out, "Index is consistent: 2 songs, 2 indexed")

	// And: the JSON report agrees
	out, err = runCLI(t, dataDir, "check", "--json")
	require.NoError(t, err)
	var result struct {
		Checked int `json:"checked"`
		Indexed int `json:"indexed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 2, result.Indexed)
}

func TestStatus_JSON(t *testing.T) {
	// Given: a library with two songs
	dataDir := isolate(t)
	importSamples(t, dataDir)

	// When: asking for status as JSON
	out, err := runCLI(t, dataDir, "status", "--json")

	// Then: counts and sizes are reported
	require.NoError(t, err)
	var info ui.StatusInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, dataDir, info.DataDir)
	assert.Equal(t, 2, info.Songs)
	assert.Equal(t, 2, info.Indexed)
	assert.False(t, info.Locked)
	assert.Positive(t, info.StoreSize)
}

func TestExport_WritesSongFiles(t *testing.T) {
	// Given: a library with two songs
	dataDir := isolate(t)
	views := importSamples(t, dataDir)
	dest := filepath.Join(t.TempDir(), "export")

	// When: exporting it
	out, err := runCLI(t, dataDir, "export", dest)

	// Then: one file per song is written and re-imports cleanly
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 songs")

	path := filepath.Join(dest, exportFileName(views[0].Title, views[0].ID))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Amazing Grace\n"))

	// And: a second export keeps existing files
	out, err = runCLI(t, dataDir, "export", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 0 songs")
	assert.Contains(t, out, "2 existing files kept")
}

func TestExportFileName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Amazing Grace", "Amazing Grace (1).txt"},
		{"AC/DC: Live?", "AC_DC_ Live_ (1).txt"},
		{"..hidden", "hidden (1).txt"},
		{"  ", "untitled (1).txt"},
		{"tab\there", "tabhere (1).txt"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, exportFileName(tt.title, 1))
		})
	}
}

func TestLockedLibrary(t *testing.T) {
	// Given: a short lock timeout and another holder of the library lock
	dataDir := isolate(t)
	importSamples(t, dataDir)
	writeSongFile(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "songbook"),
		"config.yaml", "store:\n  lock_timeout: 100ms\n")

	holder := store.NewDirLock(dataDir)
	ok, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = holder.Unlock() })

	// When: running a command that opens the library
	_, err = runCLI(t, dataDir, "list")

	// Then: it fails with a lock error
	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeStoreLocked, sberrors.GetCode(err))

	// And: status still reports what it can see
	out, err := runCLI(t, dataDir, "status", "--json")
	require.NoError(t, err)
	var info ui.StatusInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.True(t, info.Locked)
}

func TestWatch_ImportsNewFiles(t *testing.T) {
	// Given: a watched folder holding one song
	dataDir := isolate(t)
	folder := t.TempDir()
	writeSongFile(t, folder, "grace.txt", amazingGrace)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- runCLIContext(ctx, dataDir, stdout, stderr, "watch", folder)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "Watching")
	}, 10*time.Second, 20*time.Millisecond)
	// The watch goroutine registers the folder just after the banner.
	time.Sleep(300 * time.Millisecond)

	// When: a new song file appears
	writeSongFile(t, folder, "vision.txt", beThouMyVision)

	// Then: the watcher adds it
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "1 added")
	}, 10*time.Second, 20*time.Millisecond)

	// And: cancelling stops the command cleanly
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}

	views := listSongs(t, dataDir)
	require.Len(t, views, 2)
	assert.Equal(t, "Be Thou My Vision", views[1].Title)
}
