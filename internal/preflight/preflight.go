// Package preflight validates the environment before the server starts:
// data directory writable, enough disk, port free, credentials not left
// at their defaults. Failing fast here beats a half-started server.
package preflight

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/specfusion/specfusion/internal/config"
)

// CheckStatus is the outcome of one preflight check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns PASS, WARN, or FAIL.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult is one check's outcome.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Required bool        `json:"required"`
}

// IsCritical reports a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// RunAll executes every serve-time check against cfg.
func RunAll(cfg *config.Config) []CheckResult {
	dataDir := filepath.Dir(cfg.DBPath)
	return []CheckResult{
		CheckWritable(dataDir),
		CheckDiskSpace(dataDir),
		CheckPortFree(cfg.Port),
		CheckAdminToken(cfg.AdminToken),
	}
}

// HasCriticalFailures reports whether any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// Format renders results as one line per check.
func Format(results []CheckResult) string {
	out := ""
	for _, r := range results {
		out += fmt.Sprintf("[%s] %s: %s\n", r.Status, r.Name, r.Message)
	}
	return out
}

// CheckWritable verifies the data directory exists (creating it if needed)
// and accepts writes.
func CheckWritable(dir string) CheckResult {
	result := CheckResult{Name: "data_dir", Required: true}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}
	probe := filepath.Join(dir, ".specfusion-preflight")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("not writable: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = dir + " writable"
	return result
}

// CheckPortFree verifies the listen port can be bound.
func CheckPortFree(port int) CheckResult {
	result := CheckResult{Name: "port", Required: true}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("port %d unavailable: %v", port, err)
		return result
	}
	_ = ln.Close()

	result.Status = StatusPass
	result.Message = fmt.Sprintf("port %d available", port)
	return result
}

// CheckAdminToken warns when the admin token was never changed from the
// shipped default.
func CheckAdminToken(token string) CheckResult {
	result := CheckResult{Name: "admin_token", Required: false}

	if token == config.DefaultAdminToken {
		result.Status = StatusWarn
		result.Message = "ADMIN_TOKEN is the default; set a real token before exposing the server"
		return result
	}
	result.Status = StatusPass
	result.Message = "configured"
	return result
}
