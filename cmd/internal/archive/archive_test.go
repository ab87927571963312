package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webhookd/backup-relay/cmd/internal/utils"
	"go.uber.org/zap/zaptest"
)

func Test_New(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()

	a, err := New(log, "7z")
	require.NoError(t, err)
	assert.Equal(t, ".7z", a.Extension())

	a, err = New(log, "targz")
	require.NoError(t, err)
	assert.Equal(t, ".tar.gz", a.Extension())

	_, err = New(log, "rar")
	require.Error(t, err)
}

func prepareSource(t *testing.T) string {
	t.Helper()

	src := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("precious data"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("more precious data"), 0600))

	return src
}

func Test_TarGz_Archive(t *testing.T) {
	src := prepareSource(t)
	dst := filepath.Join(t.TempDir(), "backup.tar.gz")

	artifact, err := newTarGz().Archive(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, dst, artifact.Path)
	assert.Positive(t, artifact.Size)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), artifact.Size)
}

func Test_TarGz_Archive_Timeout(t *testing.T) {
	src := prepareSource(t)
	dst := filepath.Join(t.TempDir(), "backup.tar.gz")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTarGz().Archive(ctx, src, dst)
	require.ErrorIs(t, err, context.Canceled)

	// no partial archive may linger in the backup folder
	require.Eventually(t, func() bool {
		_, err := os.Stat(dst)
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond)
}

func Test_SevenZip_Archive(t *testing.T) {
	if !utils.IsCommandPresent("7z") {
		t.Skip("7z is not installed")
	}

	src := prepareSource(t)
	dst := filepath.Join(t.TempDir(), "backup.7z")

	artifact, err := newSevenZip(zaptest.NewLogger(t).Sugar()).Archive(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, dst, artifact.Path)
	assert.Positive(t, artifact.Size)
}
