package extractor

import (
	"context"
	"strconv"

	"mediagrab/internal/model"
	"mediagrab/pkg/logger"

	"go.uber.org/zap"
)

// AudioFormat is the container produced by audio extraction.
const AudioFormat = "mp3"

// MergeFormat is the container muxed video downloads are merged into.
const MergeFormat = "mp4"

// DownloadSpec describes one downloader invocation.
type DownloadSpec struct {
	URL      string
	Selector string // empty lets the downloader pick its default
	// OutputTemplate is a path whose %(ext)s placeholder the downloader
	// replaces with the final container extension.
	OutputTemplate string
	ExtractAudio   bool
}

// YtDlp wraps the yt-dlp executable.
type YtDlp struct {
	path       string
	ffmpegPath string
	retries    int
	runner     Runner
}

// NewYtDlp creates a yt-dlp wrapper
func NewYtDlp(tools Tools, retries int, runner Runner) *YtDlp {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &YtDlp{
		path:       tools.YtDlp,
		ffmpegPath: tools.Ffmpeg,
		retries:    retries,
		runner:     runner,
	}
}

// Probe fetches the format catalog of url without downloading media.
func (y *YtDlp) Probe(ctx context.Context, url string) (*model.MediaInfo, error) {
	res, err := y.runner.Run(ctx, y.path, y.probeArgs(url)...)
	if err != nil {
		return nil, &model.ProbeError{Reason: err.Error()}
	}
	if !res.Success() {
		logger.Logger.Warn("Probe exited non-zero",
			zap.String("url", url),
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", res.Stderr))
		return nil, &model.ProbeError{Reason: "exit status " + strconv.Itoa(res.ExitCode), Stderr: res.Stderr}
	}

	info, err := ParseProbeOutput([]byte(res.Stdout))
	if err != nil {
		return nil, err
	}

	logger.Logger.Info("Probe completed",
		zap.String("url", url),
		zap.String("title", info.Title),
		zap.Int("formats", len(info.Formats)))
	return info, nil
}

// Download runs one download attempt. The returned Result carries the exit
// status; err is only set when the process could not run at all.
func (y *YtDlp) Download(ctx context.Context, spec DownloadSpec) (*Result, error) {
	args := y.downloadArgs(spec)
	logger.Logger.Debug("Starting download",
		zap.String("url", spec.URL),
		zap.String("selector", spec.Selector),
		zap.Bool("extract_audio", spec.ExtractAudio))
	return y.runner.Run(ctx, y.path, args...)
}

func (y *YtDlp) probeArgs(url string) []string {
	return []string{
		"--ffmpeg-location", y.ffmpegPath,
		"--dump-json",
		"--no-playlist",
		url,
	}
}

func (y *YtDlp) downloadArgs(spec DownloadSpec) []string {
	var args []string
	if spec.Selector != "" {
		args = append(args, "-f", spec.Selector)
	}
	if spec.ExtractAudio {
		args = append(args, "-x", "--audio-format", AudioFormat, "--audio-quality", "0")
	} else {
		args = append(args, "--merge-output-format", MergeFormat)
	}

	retries := strconv.Itoa(y.retries)
	args = append(args,
		"-o", spec.OutputTemplate,
		"--ffmpeg-location", y.ffmpegPath,
		"--no-playlist",
		"--retries", retries,
		"--fragment-retries", retries,
		"--force-ipv4",
		spec.URL,
	)
	return args
}
