package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestBackend(t *testing.T) *HTTPBackend {
	t.Helper()
	return NewBackend(zaptest.NewLogger(t).Sugar(), 10*time.Second)
}

func Test_UploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.7z")
	require.NoError(t, os.WriteFile(path, []byte("compressed contents"), 0600))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1 << 20))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() {
			_ = f.Close()
		}()

		assert.Equal(t, "backup.7z", header.Filename)

		contents, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "compressed contents", string(contents))

		_, _ = w.Write([]byte(`{"link":"https://stage.example/xyz"}`))
	}))
	defer ts.Close()

	raw, err := newTestBackend(t).UploadFile(context.Background(), ts.URL, "file", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"link":"https://stage.example/xyz"}`, string(raw))
}

func Test_UploadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := newTestBackend(t).UploadFile(context.Background(), "http://127.0.0.1:0", "file", "/does/not/exist")
		require.Error(t, err)
	})

	t.Run("unusable url", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backup.7z")
		require.NoError(t, os.WriteFile(path, []byte("compressed contents"), 0600))

		_, err := newTestBackend(t).UploadFile(context.Background(), "://stage.example", "file", path)
		require.Error(t, err)
	})

	t.Run("non-2xx response", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backup.7z")
		require.NoError(t, os.WriteFile(path, []byte("compressed contents"), 0600))

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
		}))
		defer ts.Close()

		_, err := newTestBackend(t).UploadFile(context.Background(), ts.URL, "file", path)
		require.Error(t, err)
	})
}

func Test_PostJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"content":"hello"}`, string(raw))
	}))
	defer ts.Close()

	_, err := newTestBackend(t).PostJSON(context.Background(), ts.URL, map[string]string{"content": "hello"})
	require.NoError(t, err)
}
