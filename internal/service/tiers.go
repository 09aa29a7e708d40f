package service

import (
	"math"
	"strconv"

	"mediagrab/internal/model"
)

// Tier category keys, also used by ENABLED_QUALITY_CATEGORIES.
const (
	CategoryAudio = "Audio"
	CategorySD    = "SD"
	CategoryHD    = "HD"
	CategoryFHD   = "FHD"
)

// AudioLabel is the label of the single audio-only option.
const AudioLabel = "Audio (best available)"

// videoTiers are evaluated lowest first; a format claimed by a lower tier is
// never repeated under a higher one.
var videoTiers = []struct {
	category  string
	minHeight int
	label     string
}{
	{CategorySD, 480, "SD (480p)"},
	{CategoryHD, 720, "HD (720p)"},
	{CategoryFHD, 1080, "Full HD (1080p)"},
}

// SelectTiers reduces a format catalog to at most one audio option and one
// option per video tier, in the order Audio, SD, HD, Full HD. Tiers without a
// qualifying format are left out.
func SelectTiers(info *model.MediaInfo) []model.QualityOption {
	options := []model.QualityOption{}
	if info == nil {
		return options
	}

	if audio, ok := bestAudio(info.Formats); ok {
		options = append(options, newOption(audio, CategoryAudio, AudioLabel))
	}

	selected := map[string]bool{}
	for _, tier := range videoTiers {
		f, ok := closestAbove(info.Formats, tier.minHeight)
		if !ok || selected[f.FormatID] {
			continue
		}
		selected[f.FormatID] = true
		options = append(options, newOption(f, tier.category, tier.label))
	}

	return options
}

// bestAudio picks the audio-only format with the highest bitrate. Unknown
// bitrates compare as zero and earlier formats win ties.
func bestAudio(formats []model.FormatDescriptor) (model.FormatDescriptor, bool) {
	var best model.FormatDescriptor
	found := false
	for _, f := range formats {
		if !f.IsAudioOnly() {
			continue
		}
		if !found || f.Bitrate() > best.Bitrate() {
			best, found = f, true
		}
	}
	return best, found
}

// closestAbove picks the muxed format with the smallest height that is still
// at least minHeight, preferring the higher bitrate among equal heights.
func closestAbove(formats []model.FormatDescriptor, minHeight int) (model.FormatDescriptor, bool) {
	var best model.FormatDescriptor
	found := false
	for _, f := range formats {
		if !f.IsMuxed() || f.HeightPixels == nil || *f.HeightPixels < minHeight {
			continue
		}
		if !found {
			best, found = f, true
			continue
		}
		h, bh := *f.HeightPixels, *best.HeightPixels
		if h < bh || (h == bh && f.Bitrate() > best.Bitrate()) {
			best = f
		}
	}
	return best, found
}

func newOption(f model.FormatDescriptor, category, label string) model.QualityOption {
	return model.QualityOption{
		FormatID:           f.FormatID,
		Label:              label,
		Container:          f.Container,
		EstimatedSizeBytes: f.FileSizeBytes,
		DisplaySize:        FormatBytes(f.FileSizeBytes),
		Category:           category,
		HeightPixels:       f.HeightPixels,
	}
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a size with binary prefixes and at most two decimals,
// e.g. 1572864 -> "1.5 MB". Unknown or non-positive sizes give nil.
func FormatBytes(bytes *int64) *string {
	if bytes == nil || *bytes <= 0 {
		return nil
	}

	b := float64(*bytes)
	i := 0
	for b >= 1024 && i < len(sizeUnits)-1 {
		b /= 1024
		i++
	}

	s := strconv.FormatFloat(math.Round(b*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
	return &s
}

// FilterCategories keeps options whose category is enabled.
func FilterCategories(options []model.QualityOption, enabled []string) []model.QualityOption {
	if len(enabled) == 0 {
		return options
	}
	allow := make(map[string]bool, len(enabled))
	for _, c := range enabled {
		allow[c] = true
	}

	filtered := make([]model.QualityOption, 0, len(options))
	for _, opt := range options {
		if allow[opt.Category] {
			filtered = append(filtered, opt)
		}
	}
	return filtered
}
