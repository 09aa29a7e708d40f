package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mediagrab/internal/extractor"
	"mediagrab/internal/metrics"
	"mediagrab/internal/model"
	"mediagrab/pkg/logger"
	"mediagrab/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default selectors for the primary attempt when no format id is given.
const (
	DefaultVideoSelector = "bestvideo[acodec!=none][vcodec!=none]/best[acodec!=none][vcodec!=none]/best"
	DefaultAudioSelector = "bestaudio/best"
	BestSelector         = "best"
)

// Strategy names, used in logs, metrics and ProcessError.Stage.
const (
	StrategyPrimary   = "primary"
	StrategyBest      = "best"
	StrategyTranscode = "transcode"
)

// Output file prefixes inside the download directory.
const (
	prefixDownload = "download"
	prefixFallback = "fallback"
	prefixAudio    = "audio"
)

// OutputPrefixes lists the name prefixes of every file the service writes
// into the download directory.
func OutputPrefixes() []string {
	return []string{prefixDownload, prefixFallback, prefixAudio}
}

// fallback2MinHeight excludes storyboard-sized renditions from the transcode path.
const fallback2MinHeight = 144

const formatUnavailable = "requested format is not available"

// Downloader probes sources and runs download attempts
type Downloader interface {
	Prober
	Download(ctx context.Context, spec extractor.DownloadSpec) (*extractor.Result, error)
}

// Transcoder extracts an audio track from a media file
type Transcoder interface {
	ExtractAudio(ctx context.Context, inputPath, outputPath string) (*extractor.Result, error)
}

// CleanupScheduler accepts files for deferred deletion
type CleanupScheduler interface {
	Schedule(filePath string, delay time.Duration)
}

// DownloadService drives the downloader through its strategies until a file
// exists on disk, then hands the file to the cleanup scheduler.
type DownloadService struct {
	downloader     Downloader
	transcoder     Transcoder
	cleanup        CleanupScheduler
	cache          ProbeCache
	workDir        string
	grace          time.Duration
	timeout        time.Duration
	allowedDomains []string
	newToken       func() string
}

// NewDownloadService creates a new download service. cache may be nil.
func NewDownloadService(d Downloader, t Transcoder, cleanup CleanupScheduler, cache ProbeCache, cfg *model.Config) *DownloadService {
	workDir := cfg.Storage.DownloadDir
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	return &DownloadService{
		downloader:     d,
		transcoder:     t,
		cleanup:        cleanup,
		cache:          cache,
		workDir:        workDir,
		grace:          time.Duration(cfg.Storage.FileTTLSeconds) * time.Second,
		timeout:        time.Duration(cfg.Download.DownloadTimeout) * time.Second,
		allowedDomains: cfg.Security.AllowedDomains,
		newToken:       uuid.NewString,
	}
}

// Download produces the requested file. Unsupported URLs are rejected before
// any process is started.
func (s *DownloadService) Download(ctx context.Context, req *model.DownloadRequest) (*model.DownloadResult, error) {
	start := time.Now()
	url := strings.TrimSpace(req.URL)
	formatID := strings.TrimSpace(req.FormatID)
	kind := req.Kind()

	source, err := validator.DetectPlatform(url, s.allowedDomains)
	if err != nil {
		logger.Logger.Warn("Rejected download for unsupported source", zap.String("url", url))
		return nil, err
	}
	if !validator.ValidateFormatID(formatID) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFormatID, formatID)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Logger.Info("Download requested",
		zap.String("url", url),
		zap.String("source", source),
		zap.String("format_id", formatID),
		zap.String("kind", kind.String()))

	var path, strategy string
	if kind == model.OutputAudio {
		path, strategy, err = s.downloadAudio(ctx, url, formatID)
	} else {
		path, strategy, err = s.downloadVideo(ctx, url, formatID)
	}
	if err != nil {
		metrics.RecordDownload(kind.String(), strategy, "failed", time.Since(start).Seconds(), 0)
		logger.Logger.Error("Download failed",
			zap.String("url", url),
			zap.String("strategy", strategy),
			zap.Error(err))
		return nil, err
	}

	var size int64
	if fi, statErr := os.Stat(path); statErr == nil {
		size = fi.Size()
	}

	// Registered before returning so the file outlives the response by the grace period.
	s.cleanup.Schedule(path, s.grace)

	name := filepath.Base(path)
	metrics.RecordDownload(kind.String(), strategy, "success", time.Since(start).Seconds(), size)
	logger.Logger.Info("Download completed",
		zap.String("file", name),
		zap.String("strategy", strategy),
		zap.Int64("size_bytes", size),
		zap.Duration("duration", time.Since(start)))

	return &model.DownloadResult{
		LocalFilePath: path,
		FileName:      name,
		SourceLabel:   source,
		ContentType:   ContentTypeFor(name),
		SizeBytes:     size,
	}, nil
}

func (s *DownloadService) downloadVideo(ctx context.Context, url, formatID string) (string, string, error) {
	selector := formatID
	if selector == "" {
		selector = DefaultVideoSelector
	}

	path, res, err := s.attempt(ctx, StrategyPrimary, url, selector, false, prefixDownload)
	if err == nil {
		return path, StrategyPrimary, nil
	}
	if res == nil || res.Success() || !strings.Contains(strings.ToLower(res.Stderr), formatUnavailable) {
		return "", StrategyPrimary, err
	}

	logger.Logger.Warn("Requested format unavailable, retrying with best",
		zap.String("url", url),
		zap.String("format_id", formatID))
	s.evictProbe(url)

	path, _, err = s.attempt(ctx, StrategyBest, url, BestSelector, false, prefixDownload)
	return path, StrategyBest, err
}

func (s *DownloadService) downloadAudio(ctx context.Context, url, formatID string) (string, string, error) {
	selector := formatID
	if selector == "" {
		selector = DefaultAudioSelector
	}

	path, _, err := s.attempt(ctx, StrategyPrimary, url, selector, true, prefixDownload)
	if err == nil {
		return path, StrategyPrimary, nil
	}
	if ctx.Err() != nil {
		return "", StrategyPrimary, err
	}

	logger.Logger.Warn("Audio extraction failed, falling back to video transcode",
		zap.String("url", url),
		zap.Error(err))

	path, err = s.audioViaTranscode(ctx, url, err)
	return path, StrategyTranscode, err
}

// audioViaTranscode downloads the smallest muxed rendition and extracts its
// audio with the transcoder. primaryErr is returned when the catalog has no
// usable rendition.
func (s *DownloadService) audioViaTranscode(ctx context.Context, url string, primaryErr error) (string, error) {
	info, err := s.downloader.Probe(ctx, url)
	if err != nil {
		metrics.RecordProbe("failed")
		return "", err
	}
	metrics.RecordProbe("success")

	f, ok := lowestMuxed(info.Formats, fallback2MinHeight)
	if !ok {
		logger.Logger.Warn("No muxed rendition to transcode from", zap.String("url", url))
		return "", primaryErr
	}

	video, _, err := s.attempt(ctx, StrategyTranscode, url, f.FormatID, false, prefixFallback)
	if err != nil {
		return "", err
	}
	defer s.cleanup.Schedule(video, 0)

	token := s.newToken()
	output := filepath.Join(s.workDir, prefixAudio+"_"+token+"."+extractor.AudioFormat)

	res, err := s.transcoder.ExtractAudio(ctx, video, output)
	if err != nil {
		metrics.RecordAttempt("ffmpeg", "error")
		s.discardLeftovers(prefixAudio, token)
		if ctx.Err() != nil {
			return "", err
		}
		return "", &model.ProcessError{Tool: "ffmpeg", Stage: StrategyTranscode, ExitCode: -1, Stderr: err.Error()}
	}
	if !res.Success() {
		metrics.RecordAttempt("ffmpeg", "failed")
		s.discardLeftovers(prefixAudio, token)
		return "", &model.ProcessError{Tool: "ffmpeg", Stage: StrategyTranscode, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	if _, err := os.Stat(output); err != nil {
		metrics.RecordAttempt("ffmpeg", "no_output")
		return "", model.ErrNoOutputProduced
	}

	metrics.RecordAttempt("ffmpeg", "success")
	return output, nil
}

// evictProbe drops a cached catalog that offered a format the source no
// longer serves, so the next analyze probes again.
func (s *DownloadService) evictProbe(url string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, url); err != nil {
		logger.Logger.Warn("Failed to evict cached probe", zap.String("url", url), zap.Error(err))
	}
}

// attempt runs one downloader invocation into a fresh <prefix>_<token> name
// and locates the produced file. The Result is returned whenever the process
// ran, so callers can inspect its stderr.
func (s *DownloadService) attempt(ctx context.Context, strategy, url, selector string, audio bool, prefix string) (string, *extractor.Result, error) {
	token := s.newToken()
	spec := extractor.DownloadSpec{
		URL:            url,
		Selector:       selector,
		OutputTemplate: filepath.Join(s.workDir, prefix+"_"+token+".%(ext)s"),
		ExtractAudio:   audio,
	}

	res, err := s.downloader.Download(ctx, spec)
	if err != nil {
		metrics.RecordAttempt(strategy, "error")
		s.discardLeftovers(prefix, token)
		if ctx.Err() != nil {
			return "", nil, err
		}
		return "", nil, &model.ProcessError{Tool: "yt-dlp", Stage: strategy, ExitCode: -1, Stderr: err.Error()}
	}
	if !res.Success() {
		metrics.RecordAttempt(strategy, "failed")
		logger.Logger.Warn("Download attempt failed",
			zap.String("strategy", strategy),
			zap.String("selector", selector),
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", res.Stderr))
		s.discardLeftovers(prefix, token)
		return "", res, &model.ProcessError{Tool: "yt-dlp", Stage: strategy, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	wantExt := extractor.MergeFormat
	if audio {
		wantExt = extractor.AudioFormat
	}
	path, ok := s.findOutput(prefix, token, wantExt)
	if !ok {
		metrics.RecordAttempt(strategy, "no_output")
		logger.Logger.Error("Downloader exited cleanly without output",
			zap.String("strategy", strategy),
			zap.String("template", spec.OutputTemplate))
		s.discardLeftovers(prefix, token)
		return "", res, model.ErrNoOutputProduced
	}

	metrics.RecordAttempt(strategy, "success")
	return path, res, nil
}

// findOutput returns the finished file for token, preferring wantExt.
// Unfinished fragments are ignored and any extra finished files are
// scheduled for immediate deletion.
func (s *DownloadService) findOutput(prefix, token, wantExt string) (string, bool) {
	var finished []string
	for _, p := range s.matching(prefix, token) {
		if !isPartial(p) {
			finished = append(finished, p)
		}
	}
	if len(finished) == 0 {
		return "", false
	}

	chosen := finished[0]
	want := filepath.Join(s.workDir, prefix+"_"+token+"."+wantExt)
	for _, p := range finished {
		if p == want {
			chosen = p
			break
		}
	}

	for _, p := range s.matching(prefix, token) {
		if p != chosen {
			s.cleanup.Schedule(p, 0)
		}
	}
	return chosen, true
}

// discardLeftovers schedules every file of a failed attempt for deletion.
func (s *DownloadService) discardLeftovers(prefix, token string) {
	for _, p := range s.matching(prefix, token) {
		s.cleanup.Schedule(p, 0)
	}
}

func (s *DownloadService) matching(prefix, token string) []string {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		return nil
	}
	stem := prefix + "_" + token + "."
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), stem) {
			paths = append(paths, filepath.Join(s.workDir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

func isPartial(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	if strings.Contains(name, ".part") {
		return true
	}
	for _, ext := range []string{".ytdl", ".temp", ".tmp"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// lowestMuxed picks the muxed format with the smallest height of at least
// minHeight. Earlier formats win ties.
func lowestMuxed(formats []model.FormatDescriptor, minHeight int) (model.FormatDescriptor, bool) {
	var best model.FormatDescriptor
	found := false
	for _, f := range formats {
		if !f.IsMuxed() || f.HeightPixels == nil || *f.HeightPixels < minHeight {
			continue
		}
		if !found || *f.HeightPixels < *best.HeightPixels {
			best, found = f, true
		}
	}
	return best, found
}

// ContentTypeFor maps a produced file name to its response content type.
func ContentTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".mp3":
		return "audio/mpeg"
	case ".webm":
		return "video/webm"
	default:
		return "video/mp4"
	}
}
