package service

import (
	"context"
	"errors"
	"testing"

	"mediagrab/internal/cache"
	"mediagrab/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	info  *model.MediaInfo
	err   error
	calls int
}

func (p *fakeProber) Probe(ctx context.Context, url string) (*model.MediaInfo, error) {
	p.calls++
	return p.info, p.err
}

func testConfig(t *testing.T) *model.Config {
	return &model.Config{
		Storage:  model.StorageConfig{DownloadDir: t.TempDir(), FileTTLSeconds: 300, MaxDeleteAttempts: 3},
		Download: model.DownloadConfig{Retries: 1, DownloadTimeout: 60, ProbeTimeout: 10},
		Security: model.SecurityConfig{AllowedDomains: []string{"youtube.com", "youtu.be", "tiktok.com"}},
	}
}

func sampleInfo() *model.MediaInfo {
	return &model.MediaInfo{
		Title:    "clip",
		Uploader: "someone",
		Formats: []model.FormatDescriptor{
			audioFmt("140", f64(128)),
			muxed("18", 360, 500),
			muxed("22", 720, 1500),
		},
	}
}

func TestAnalyze(t *testing.T) {
	prober := &fakeProber{info: sampleInfo()}
	svc := NewVideoService(prober, nil, testConfig(t))

	resp, err := svc.Analyze(context.Background(), "  https://www.youtube.com/watch?v=abc  ")
	require.NoError(t, err)

	assert.Equal(t, "clip", resp.Title)
	assert.Equal(t, "someone", resp.Uploader)
	assert.Equal(t, []string{AudioLabel, "SD (480p)"}, labels(resp.Formats))
	assert.Equal(t, 1, prober.calls)
}

func TestAnalyzeUnsupportedSourceSkipsProbe(t *testing.T) {
	prober := &fakeProber{info: sampleInfo()}
	svc := NewVideoService(prober, nil, testConfig(t))

	_, err := svc.Analyze(context.Background(), "https://example.com/video")
	assert.ErrorIs(t, err, model.ErrUnsupportedSource)
	assert.Zero(t, prober.calls)
}

func TestAnalyzeProbeFailure(t *testing.T) {
	prober := &fakeProber{err: &model.ProbeError{Reason: "exit status 1", Stderr: "ERROR: private video"}}
	svc := NewVideoService(prober, nil, testConfig(t))

	_, err := svc.Analyze(context.Background(), "https://youtu.be/abc")
	assert.ErrorIs(t, err, model.ErrProbeFailed)

	var probeErr *model.ProbeError
	require.True(t, errors.As(err, &probeErr))
	assert.Contains(t, probeErr.Stderr, "private video")
}

func TestAnalyzeCategoryFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.QualityCategories.Enabled = []string{CategorySD}
	svc := NewVideoService(&fakeProber{info: sampleInfo()}, nil, cfg)

	resp, err := svc.Analyze(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"SD (480p)"}, labels(resp.Formats))
}

func TestAnalyzeUsesProbeCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	pc, err := cache.NewProbeCache(model.CacheConfig{Host: mr.Host(), Port: mr.Server().Addr().Port, TTL: 60})
	require.NoError(t, err)
	defer pc.Close()

	prober := &fakeProber{info: sampleInfo()}
	svc := NewVideoService(prober, pc, testConfig(t))

	first, err := svc.Analyze(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)

	assert.Equal(t, 1, prober.calls)
	assert.Equal(t, first, second)
}

func TestFormatUnavailableEvictsCachedProbe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	pc, err := cache.NewProbeCache(model.CacheConfig{Host: mr.Host(), Port: mr.Server().Addr().Port, TTL: 60})
	require.NoError(t, err)
	defer pc.Close()

	cfg := testConfig(t)
	prober := &fakeProber{info: sampleInfo()}
	analyzer := NewVideoService(prober, pc, cfg)

	d := &fakeDownloader{t: t}
	d.steps = []downloadStep{
		exitWith(1, "ERROR: Requested format is not available"),
		produce(t, "mp4"),
	}
	downloads := NewDownloadService(d, &fakeTranscoder{}, &fakeScheduler{}, pc, cfg)

	_, err = analyzer.Analyze(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)

	_, err = downloads.Download(context.Background(), &model.DownloadRequest{URL: "https://youtu.be/abc", FormatID: "22"})
	require.NoError(t, err)

	_, err = analyzer.Analyze(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, 2, prober.calls)
}
