package bootstrap_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trackhost/internal/bootstrap"
	"trackhost/internal/platform/config"
	"trackhost/internal/platform/logging"
)

func buildSamplePlugin(t *testing.T, pkg, dest string) {
	t.Helper()
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not on PATH")
	}
	if runtime.GOOS == "windows" {
		dest += ".exe"
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	cmd := exec.Command(goBin, "build", "-o", dest, pkg)
	cmd.Dir = filepath.Join("..", "..")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func newIntegrationApp(t *testing.T) *bootstrap.App {
	t.Helper()
	dataDir := t.TempDir()
	root := filepath.Join(dataDir, "plugins")
	buildSamplePlugin(t, "./plugins/sample-device", filepath.Join(root, "sample-device", "plugin_device"))
	buildSamplePlugin(t, "./plugins/sample-service", filepath.Join(root, "sample-service", "plugin_service"))

	cfg, err := config.Load(dataDir)
	require.NoError(t, err)
	cfg.TickInterval = 5 * time.Millisecond

	app, err := bootstrap.New(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestSamplePluginsLoadAndDrive(t *testing.T) {
	if testing.Short() {
		t.Skip("builds and spawns plugin processes")
	}
	app := newIntegrationApp(t)
	ctx := context.Background()

	report, err := app.PluginCLI.Rescan(ctx)
	require.NoError(t, err)
	require.Len(t, report.Plugins, 2)
	for _, p := range report.Plugins {
		require.Equal(t, "no_error", p.Outcome, p.Error)
		require.True(t, p.Loaded)
		require.True(t, p.Enabled)
	}

	result, err := app.PluginCLI.Disable(ctx, "trackhost.sample.device")
	require.NoError(t, err)
	require.True(t, result.Reverted)
	require.True(t, result.Enabled)

	conn, err := app.PluginCLI.TestService(ctx)
	require.NoError(t, err)
	require.Equal(t, "trackhost.sample.service", conn.ServiceID)

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app.Run(runCtx, "") }()

	require.Eventually(t, func() bool {
		return len(app.PluginCLI.AppJointPoses(ctx)) > 0
	}, 2*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
