package shared

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// startCommand is replaced in tests so no browser is launched.
var startCommand = func(cmd *exec.Cmd) error { return cmd.Start() }

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := startCommand(cmd); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

// PlayerURL builds the playback URL for a title. Season and episode are only used for tv when both are positive.
func PlayerURL(base, mediaType, id string, season, episode int) string {
	base = strings.TrimRight(base, "/")
	if mediaType == "tv" && season > 0 && episode > 0 {
		return fmt.Sprintf("%s/tv/%s/%d/%d", base, id, season, episode)
	}
	return fmt.Sprintf("%s/%s/%s", base, mediaType, id)
}
