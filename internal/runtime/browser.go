package runtime

import (
	"log/slog"
	"os/exec"
	"runtime"
)

// openBrowser points the default browser at the UI. Best-effort: the server
// keeps running whether or not this works.
func openBrowser(url string, logger *slog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("failed to open browser", slog.String("url", url), slog.String("error", err.Error()))
	}
}
