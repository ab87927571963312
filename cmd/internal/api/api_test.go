package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webhookd/backup-relay/cmd/internal/artifact"
	"github.com/webhookd/backup-relay/cmd/internal/backup"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	outcome backup.Outcome
}

func (f *fakeRunner) RunOnce(ctx context.Context) backup.Outcome {
	return f.outcome
}

func newTestServer(t *testing.T, runner *fakeRunner) *gin.Engine {
	t.Helper()

	fs := afero.NewMemMapFs()
	store := artifact.NewStore(fs, "/backups")
	require.NoError(t, store.Ensure())
	require.NoError(t, afero.WriteFile(fs, "/backups/backup-1.7z", []byte("compressed contents"), 0600))

	s := New(zaptest.NewLogger(t).Sugar(), "127.0.0.1:0", runner, store)
	return s.routes()
}

func Test_TriggerBackup(t *testing.T) {
	tests := []struct {
		outcome    backup.Outcome
		wantStatus int
	}{
		{outcome: backup.Success, wantStatus: http.StatusOK},
		{outcome: backup.AlreadyInProgress, wantStatus: http.StatusConflict},
		{outcome: backup.ArchiveFailed, wantStatus: http.StatusInternalServerError},
		{outcome: backup.TransferFailed, wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			r := newTestServer(t, &fakeRunner{outcome: tt.outcome})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/backup", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.outcome.String())
		})
	}
}

func Test_ListBackups(t *testing.T) {
	r := newTestServer(t, &fakeRunner{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/backups", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "backup-1.7z")
}

func Test_Health(t *testing.T) {
	r := newTestServer(t, &fakeRunner{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
