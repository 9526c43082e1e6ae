package preflight

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfusion/specfusion/internal/config"
)

func TestCheckWritable_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	result := CheckWritable(dir)
	assert.Equal(t, StatusPass, result.Status)
	assert.True(t, result.Required)
	assert.DirExists(t, dir)
}

func TestCheckWritable_Fails(t *testing.T) {
	result := CheckWritable("/proc/specfusion-nope")
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
}

func TestCheckDiskSpace(t *testing.T) {
	result := CheckDiskSpace(t.TempDir())
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "free")
}

func TestCheckPortFree(t *testing.T) {
	// Grab a port, then verify the check reports it taken.
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	result := CheckPortFree(port)
	assert.Equal(t, StatusFail, result.Status)

	_ = ln.Close()
	result = CheckPortFree(port)
	assert.Equal(t, StatusPass, result.Status)
}

func TestCheckAdminToken(t *testing.T) {
	assert.Equal(t, StatusWarn, CheckAdminToken(config.DefaultAdminToken).Status)
	assert.Equal(t, StatusPass, CheckAdminToken("s3cret").Status)
	assert.False(t, CheckAdminToken(config.DefaultAdminToken).IsCritical())
}

func TestRunAll_AndFormat(t *testing.T) {
	cfg := &config.Config{
		Port:       0,
		DBPath:     filepath.Join(t.TempDir(), "data", "test.db"),
		AdminToken: "s3cret",
	}

	results := RunAll(cfg)
	require.Len(t, results, 4)
	assert.False(t, HasCriticalFailures(results))

	text := Format(results)
	assert.Contains(t, text, "[PASS] data_dir")
	assert.Contains(t, text, "disk_space")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "PASS", StatusPass.String())
	assert.Equal(t, "WARN", StatusWarn.String())
	assert.Equal(t, "FAIL", StatusFail.String())
}
