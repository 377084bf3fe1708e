package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// browserCommand returns the launcher for the given platform, or nil when unsupported.
func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", url)
	case "linux":
		return exec.Command("xdg-open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return nil
	}
}

// OpenBrowser opens the default system browser at url, used by the Spotify login flow.
func OpenBrowser(url string) error {
	rt := getRuntime()
	cmd := browserCommand(rt, url)
	if cmd == nil {
		return fmt.Errorf("unsupported platform: %s", rt)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
