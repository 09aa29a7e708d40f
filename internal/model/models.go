package model

import (
	"strings"
	"time"
)

// CodecNone is the codec value the probe reports for a missing stream.
const CodecNone = "none"

// FormatDescriptor is one encoding variant offered by a source.
// Numeric fields are nil when the probe did not report them.
type FormatDescriptor struct {
	FormatID      string
	FormatNote    string
	Container     string
	FileSizeBytes *int64
	BitrateKbps   *float64
	VideoCodec    string
	AudioCodec    string
	HeightPixels  *int
}

// HasVideo reports whether the format carries a video stream.
func (f FormatDescriptor) HasVideo() bool {
	return hasStream(f.VideoCodec)
}

// HasAudio reports whether the format carries an audio stream.
func (f FormatDescriptor) HasAudio() bool {
	return hasStream(f.AudioCodec)
}

// IsAudioOnly reports whether the format has audio and no video.
func (f FormatDescriptor) IsAudioOnly() bool {
	return f.HasAudio() && !f.HasVideo()
}

// IsMuxed reports whether the format has both audio and video.
func (f FormatDescriptor) IsMuxed() bool {
	return f.HasAudio() && f.HasVideo()
}

// Bitrate returns the bitrate, treating unknown as zero.
func (f FormatDescriptor) Bitrate() float64 {
	if f.BitrateKbps == nil {
		return 0
	}
	return *f.BitrateKbps
}

func hasStream(codec string) bool {
	codec = strings.TrimSpace(codec)
	return codec != "" && codec != CodecNone
}

// MediaInfo is the result of probing a source URL
type MediaInfo struct {
	Title           string             `json:"title"`
	Uploader        string             `json:"uploader"`
	DurationSeconds *float64           `json:"duration,omitempty"`
	Formats         []FormatDescriptor `json:"formats"`
}

// QualityOption is one user-facing choice returned by analyze
type QualityOption struct {
	FormatID           string  `json:"formatId"`
	Label              string  `json:"label"`
	Container          string  `json:"container"`
	EstimatedSizeBytes *int64  `json:"estimatedSizeBytes"`
	DisplaySize        *string `json:"displaySize"`

	// Category is the tier key (Audio, SD, HD, FHD).
	Category     string `json:"-"`
	HeightPixels *int   `json:"-"`
}

// AnalyzeRequest is the body of POST /analyze
type AnalyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// AnalyzeResponse is returned by POST /analyze
type AnalyzeResponse struct {
	Title    string          `json:"title"`
	Uploader string          `json:"uploader"`
	Formats  []QualityOption `json:"formats"`
}

// OutputKind selects between a video file and an extracted audio file.
type OutputKind int

const (
	OutputVideo OutputKind = iota
	OutputAudio
)

func (k OutputKind) String() string {
	if k == OutputAudio {
		return "audio"
	}
	return "video"
}

// ParseOutputKind maps a requested file type to an output kind. Anything
// other than an audio type means video.
func ParseOutputKind(fileType string) OutputKind {
	switch strings.ToLower(strings.TrimSpace(fileType)) {
	case "mp3", "audio":
		return OutputAudio
	default:
		return OutputVideo
	}
}

// DownloadRequest is the body of POST /download
type DownloadRequest struct {
	URL      string `json:"url" binding:"required"`
	FormatID string `json:"formatId"`
	FileType string `json:"fileType"` // mp4 or mp3
}

// Kind returns the output kind derived from FileType.
func (r *DownloadRequest) Kind() OutputKind {
	return ParseOutputKind(r.FileType)
}

// DownloadResult describes a file produced by the download orchestrator
type DownloadResult struct {
	LocalFilePath string `json:"-"`
	FileName      string `json:"fileName"`
	SourceLabel   string `json:"source"`
	ContentType   string `json:"contentType"`
	SizeBytes     int64  `json:"sizeBytes"`
}

// CleanupTask is a pending deferred deletion
type CleanupTask struct {
	FilePath      string
	NotBeforeTime time.Time
	Attempts      int
}

// QuotaInfo reports the download quota state of one client
type QuotaInfo struct {
	Enabled     bool      `json:"enabled"`
	UsedMB      int64     `json:"usedMb"`
	LimitMB     int64     `json:"limitMb"`
	RemainingMB int64     `json:"remainingMb"`
	ResetTime   time.Time `json:"resetTime"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
