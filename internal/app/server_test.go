package app

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	tu "github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestApp_Server(t *testing.T) {
	// --- Arrange ---
	f, err := setupAppTest(t, siteProject, siteSources, func(c *Config) {
		c.Server.Enabled = true
		c.Server.Addr = "127.0.0.1:0"
	})
	require.NoError(t, err)
	startApp(t, f.app)
	base := fmt.Sprintf("http://%s", f.app.Addr())

	// --- Act & Assert ---
	t.Run("static output", func(t *testing.T) {
		code, body := get(t, base+"/css/styles.min.css")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "a{}\nb{}", body)
	})
	t.Run("health", func(t *testing.T) {
		code, body := get(t, base+"/health")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "OK\n", body)
	})
	t.Run("metrics", func(t *testing.T) {
		code, body := get(t, base+"/metrics")
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, `assetgrid_build_runs_total{status="succeeded"} 1`)
		assert.Contains(t, body, "assetgrid_livereload_clients 0")
	})
	t.Run("client bootstrap", func(t *testing.T) {
		code, body := get(t, base+"/livereload.js")
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, "socket.io")
	})
}

func TestApp_Server_PushesReloadAfterRebuild(t *testing.T) {
	// --- Arrange ---
	f, err := setupAppTest(t, siteProject, siteSources, func(c *Config) {
		c.Server.Enabled = true
		c.Server.Addr = "127.0.0.1:0"
	})
	require.NoError(t, err)
	startApp(t, f.app)

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))
	manager := socket.NewManager(fmt.Sprintf("http://%s", f.app.Addr()), opts)
	client := manager.Socket("/", opts)

	received := make(chan map[string]any, 4)
	client.On(types.EventName("reload"), func(data ...any) {
		if len(data) == 0 {
			return
		}
		if payload, ok := data[0].(map[string]any); ok {
			received <- payload
		}
	})
	client.Connect()
	t.Cleanup(func() { client.Disconnect() })
	require.Eventually(t, func() bool { return f.app.Broadcaster().Len() == 1 }, 5*time.Second, 20*time.Millisecond)

	// --- Act ---
	tu.WriteTree(t, f.source, map[string]string{"about.html": "<html>@@include('_header.html')about</html>"})

	// --- Assert ---
	select {
	case payload := <-received:
		assert.Equal(t, []any{"about.html", "index.html"}, payload["paths"])
		assert.NotEmpty(t, payload["run_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("client did not receive the reload event")
	}
}
