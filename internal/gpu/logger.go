//go:build !nogpu

package gpu

import (
	"log/slog"

	"github.com/gogpu/raytrace"
)

// slogger returns the logger configured through raytrace.SetLogger.
// All logging in internal/gpu goes through this function.
func slogger() *slog.Logger { return raytrace.Logger() }
