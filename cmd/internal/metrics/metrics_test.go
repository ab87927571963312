package metrics

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func Test_Start(t *testing.T) {
	m := New()
	m.Register()

	require.NoError(t, m.Start(zaptest.NewLogger(t).Sugar(), "127.0.0.1:0"))
	require.NotEmpty(t, m.Addr())

	m.CountBackup(42)
	m.CountRoute("direct")
	m.CountError("relay")

	resp, err := http.Get("http://" + m.Addr() + "/metrics")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, "backup_total_backups 1")
	assert.Contains(t, body, "backup_size 42")
	assert.Contains(t, body, `backup_relays{route="direct"} 1`)
	assert.Contains(t, body, `backup_errors{operation="relay"} 1`)
}
