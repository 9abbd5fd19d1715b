package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

func TestDirLock_ExclusiveWithinProcess(t *testing.T) {
	dir := t.TempDir()
	first := NewDirLock(dir)
	second := NewDirLock(dir)

	// Given: the first lock is held
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, first.IsLocked())

	// When: a second handle tries with a short timeout
	err = second.Acquire(context.Background(), 150*time.Millisecond)

	// Then: it reports the library as locked
	assert.True(t, sberrors.HasCode(err, sberrors.ErrCodeStoreLocked))
	assert.False(t, second.IsLocked())

	// When: the first releases
	require.NoError(t, first.Unlock())

	// Then: the second acquires immediately
	require.NoError(t, second.Acquire(context.Background(), 0))
	assert.True(t, second.IsLocked())
	require.NoError(t, second.Unlock())
	assert.NoError(t, second.Unlock())
}

func TestDirLock_Path(t *testing.T) {
	dir := t.TempDir()
	assert.Contains(t, NewDirLock(dir).Path(), LockFileName)
}
