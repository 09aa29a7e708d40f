package extractor

import "context"

// FFmpeg wraps the ffmpeg executable
type FFmpeg struct {
	path   string
	runner Runner
}

// NewFFmpeg creates an ffmpeg wrapper
func NewFFmpeg(tools Tools, runner Runner) *FFmpeg {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &FFmpeg{path: tools.Ffmpeg, runner: runner}
}

// ExtractAudio drops the video stream of inputPath and encodes the audio as
// MP3 into outputPath, overwriting it.
func (f *FFmpeg) ExtractAudio(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outputPath,
	}
	return f.runner.Run(ctx, f.path, args...)
}
