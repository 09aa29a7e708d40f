package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediagrab/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	resp *model.AnalyzeResponse
	err  error
	url  string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, url string) (*model.AnalyzeResponse, error) {
	f.url = url
	return f.resp, f.err
}

type fakeDownloader struct {
	result *model.DownloadResult
	err    error
	req    *model.DownloadRequest
}

func (f *fakeDownloader) Download(ctx context.Context, req *model.DownloadRequest) (*model.DownloadResult, error) {
	f.req = req
	return f.result, f.err
}

type fakeUsage struct {
	ip    string
	bytes int64
}

func (f *fakeUsage) AddUsage(ip string, sizeBytes int64) {
	f.ip = ip
	f.bytes += sizeBytes
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func setupRouter(a Analyzer, d Downloader, usage UsageRecorder, cache Pinger) *gin.Engine {
	router := gin.New()
	ah := NewAnalyzeHandler(a, cache)
	dh := NewDownloadHandler(d, usage)
	router.POST("/analyze", ah.Analyze)
	router.POST("/download", dh.Download)
	router.GET("/health", ah.HealthCheck)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAnalyzeHandler(t *testing.T) {
	size := int64(1572864)
	display := "1.5 MB"
	a := &fakeAnalyzer{resp: &model.AnalyzeResponse{
		Title:    "clip",
		Uploader: "me",
		Formats: []model.QualityOption{
			{FormatID: "140", Label: "Audio (best available)", Container: "m4a", EstimatedSizeBytes: &size, DisplaySize: &display, Category: "Audio"},
			{FormatID: "22", Label: "HD (720p)", Container: "mp4"},
		},
	}}
	router := setupRouter(a, &fakeDownloader{}, nil, nil)

	w := do(router, http.MethodPost, "/analyze", `{"url":"https://youtu.be/a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://youtu.be/a", a.url)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "clip", body["title"])

	formats := body["formats"].([]interface{})
	require.Len(t, formats, 2)
	first := formats[0].(map[string]interface{})
	assert.Equal(t, "140", first["formatId"])
	assert.Equal(t, "1.5 MB", first["displaySize"])
	assert.Equal(t, 1572864.0, first["estimatedSizeBytes"])
	assert.NotContains(t, first, "Category")

	second := formats[1].(map[string]interface{})
	assert.Nil(t, second["displaySize"])
	assert.Contains(t, second, "estimatedSizeBytes")
}

func TestAnalyzeHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"missing url", `{}`, nil, http.StatusBadRequest, "invalid_request"},
		{"malformed body", `{"url":`, nil, http.StatusBadRequest, "invalid_request"},
		{"unsupported", `{"url":"https://example.com"}`, model.ErrUnsupportedSource, http.StatusBadRequest, "unsupported_source"},
		{"probe failed", `{"url":"https://youtu.be/a"}`, &model.ProbeError{Reason: "exit status 1"}, http.StatusBadGateway, "probe_failed"},
		{"unexpected", `{"url":"https://youtu.be/a"}`, errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&fakeAnalyzer{err: tt.err}, &fakeDownloader{}, nil, nil)
			w := do(router, http.MethodPost, "/analyze", tt.body)
			assert.Equal(t, tt.status, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestDownloadHandlerStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio_tok.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3-audio"), 0644))

	d := &fakeDownloader{result: &model.DownloadResult{
		LocalFilePath: path,
		FileName:      "audio_tok.mp3",
		SourceLabel:   "YouTube",
		ContentType:   "audio/mpeg",
		SizeBytes:     9,
	}}
	usage := &fakeUsage{}
	router := setupRouter(&fakeAnalyzer{}, d, usage, nil)

	w := do(router, http.MethodPost, "/download", `{"url":"https://youtu.be/a","formatId":"140","fileType":"mp3"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "ID3-audio", w.Body.String())
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="audio_tok.mp3"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "YouTube", w.Header().Get("X-Source"))

	require.NotNil(t, d.req)
	assert.Equal(t, "140", d.req.FormatID)
	assert.Equal(t, model.OutputAudio, d.req.Kind())
	assert.Equal(t, int64(9), usage.bytes)
}

func TestDownloadHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unsupported", model.ErrUnsupportedSource, http.StatusBadRequest, "unsupported_source"},
		{"invalid format", model.ErrInvalidFormatID, http.StatusBadRequest, "invalid_format"},
		{"process", &model.ProcessError{Tool: "yt-dlp", Stage: "best", ExitCode: 1, Stderr: "HTTP Error 403"}, http.StatusBadGateway, "download_failed"},
		{"no output", model.ErrNoOutputProduced, http.StatusInternalServerError, "no_output"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage := &fakeUsage{}
			router := setupRouter(&fakeAnalyzer{}, &fakeDownloader{err: tt.err}, usage, nil)
			w := do(router, http.MethodPost, "/download", `{"url":"https://youtu.be/a"}`)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error)
			assert.Zero(t, usage.bytes)
		})
	}
}

func TestDownloadHandlerProcessErrorCarriesStderr(t *testing.T) {
	err := &model.ProcessError{Tool: "yt-dlp", Stage: "primary", ExitCode: 1, Stderr: "ERROR: Private video"}
	router := setupRouter(&fakeAnalyzer{}, &fakeDownloader{err: err}, nil, nil)

	w := do(router, http.MethodPost, "/download", `{"url":"https://youtu.be/a"}`)
	assert.Contains(t, decodeError(t, w).Message, "Private video")
}

func TestDownloadHandlerMissingURL(t *testing.T) {
	d := &fakeDownloader{}
	router := setupRouter(&fakeAnalyzer{}, d, nil, nil)

	w := do(router, http.MethodPost, "/download", `{"formatId":"22"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, d.req)
}

func TestHealthCheck(t *testing.T) {
	w := do(setupRouter(&fakeAnalyzer{}, &fakeDownloader{}, nil, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = do(setupRouter(&fakeAnalyzer{}, &fakeDownloader{}, nil, fakePinger{err: errors.New("conn refused")}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestBuildContentDispositionHeader(t *testing.T) {
	assert.Equal(t, `attachment; filename="download_x.mp4"`, buildContentDispositionHeader("download_x.mp4"))
	assert.Equal(t, `attachment; filename*=UTF-8''my%20clip.mp4`, buildContentDispositionHeader("my clip.mp4"))
	assert.Equal(t, `attachment; filename*=UTF-8''caf%C3%A9.mp3`, buildContentDispositionHeader("café.mp3"))
}

type fakeQuotaReporter struct{ info model.QuotaInfo }

func (f fakeQuotaReporter) GetQuotaInfo(ip string) model.QuotaInfo { return f.info }

func TestGetQuota(t *testing.T) {
	router := gin.New()
	router.GET("/quota", NewQuotaHandler(fakeQuotaReporter{info: model.QuotaInfo{Enabled: true, UsedMB: 3, LimitMB: 10, RemainingMB: 7}}).GetQuota)

	w := do(router, http.MethodGet, "/quota", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info model.QuotaInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, int64(7), info.RemainingMB)
	assert.True(t, info.Enabled)
}
