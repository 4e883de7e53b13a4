package fetcher

import (
	"os/exec"

	"github.com/jmylchreest/authcrawl/internal/logger"
)

// chromeBinaryNames are tried in order: PATH names first, then install paths.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// FindChromePath returns the first Chrome/Chromium binary found, or "" to let
// chromedp use its own lookup.
func FindChromePath() string {
	for _, name := range chromeBinaryNames {
		if path, err := lookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found, relying on chromedp's default lookup")
	return ""
}
