package extractor

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"mediagrab/internal/model"
)

// ParseProbeOutput turns the JSON document printed by a probe into a
// MediaInfo. Top-level fields of the wrong type fall back to zero values and
// format entries without an id or container are skipped; only output that is
// not a JSON object fails.
func ParseProbeOutput(output []byte) (*model.MediaInfo, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return nil, &model.ProbeError{Reason: "empty probe output"}
	}

	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&raw); err != nil {
		return nil, &model.ProbeError{Reason: "malformed probe output: " + err.Error()}
	}
	if raw == nil {
		return nil, &model.ProbeError{Reason: "probe output is not an object"}
	}

	info := &model.MediaInfo{
		Title:           stringField(raw, "title"),
		Uploader:        stringField(raw, "uploader"),
		DurationSeconds: floatField(raw, "duration"),
		Formats:         []model.FormatDescriptor{},
	}

	entries, _ := raw["formats"].([]interface{})
	for _, entry := range entries {
		rawFmt, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if format, ok := parseFormat(rawFmt); ok {
			info.Formats = append(info.Formats, format)
		}
	}

	return info, nil
}

// parseFormat converts one raw format entry
func parseFormat(rawFmt map[string]interface{}) (model.FormatDescriptor, bool) {
	formatID := strings.TrimSpace(stringField(rawFmt, "format_id"))
	ext := strings.TrimSpace(stringField(rawFmt, "ext"))
	if formatID == "" || ext == "" {
		return model.FormatDescriptor{}, false
	}

	size := intField(rawFmt, "filesize")
	if size == nil {
		size = intField(rawFmt, "filesize_approx")
	}

	var height *int
	if h := intField(rawFmt, "height"); h != nil {
		v := int(*h)
		height = &v
	}

	return model.FormatDescriptor{
		FormatID:      formatID,
		FormatNote:    stringField(rawFmt, "format_note"),
		Container:     ext,
		FileSizeBytes: size,
		BitrateKbps:   floatField(rawFmt, "tbr"),
		VideoCodec:    stringField(rawFmt, "vcodec"),
		AudioCodec:    stringField(rawFmt, "acodec"),
		HeightPixels:  height,
	}, true
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func floatField(m map[string]interface{}, key string) *float64 {
	v, ok := m[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// intField truncates fractional values; yt-dlp sometimes reports
// approximate sizes as floats.
func intField(m map[string]interface{}, key string) *int64 {
	f := floatField(m, key)
	if f == nil || *f > math.MaxInt64 || *f < math.MinInt64 {
		return nil
	}
	v := int64(*f)
	return &v
}
