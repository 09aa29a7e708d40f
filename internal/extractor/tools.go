package extractor

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"mediagrab/internal/model"
)

// Tools holds resolved executable paths.
type Tools struct {
	YtDlp  string
	Ffmpeg string
}

// unixSearchDirs are checked before PATH on non-Windows hosts.
var unixSearchDirs = []string{"/usr/local/bin", "/usr/bin"}

// ResolveTools fills in executable paths. An explicit path in cfg wins;
// otherwise Windows looks in the Tools directory next to the binary and
// other platforms check the usual bin directories and then PATH.
func ResolveTools(cfg model.ToolsConfig) Tools {
	toolsDir := cfg.ToolsDir
	if toolsDir == "" {
		toolsDir = defaultToolsDir()
	}
	return Tools{
		YtDlp:  resolveTool(cfg.YtDlpPath, "yt-dlp", toolsDir, runtime.GOOS),
		Ffmpeg: resolveTool(cfg.FfmpegPath, "ffmpeg", toolsDir, runtime.GOOS),
	}
}

func resolveTool(override, name, toolsDir, goos string) string {
	if override != "" {
		return override
	}

	if goos == "windows" {
		exe := name + ".exe"
		candidate := filepath.Join(toolsDir, exe)
		if fileExists(candidate) {
			return candidate
		}
		return exe
	}

	for _, dir := range unixSearchDirs {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return name
}

func defaultToolsDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "Tools"
	}
	return filepath.Join(filepath.Dir(exe), "Tools")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
