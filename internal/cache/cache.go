package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"mediagrab/internal/model"

	"github.com/redis/go-redis/v9"
)

// ProbeCache stores probe results in Redis keyed by source URL
type ProbeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProbeCache connects to Redis and verifies the connection
func NewProbeCache(cfg model.CacheConfig) (*ProbeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ProbeCache{client: client, ttl: time.Duration(cfg.TTL) * time.Second}, nil
}

// Close closes the Redis connection
func (c *ProbeCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *ProbeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached probe result for url, or nil on a miss.
func (c *ProbeCache) Get(ctx context.Context, url string) (*model.MediaInfo, error) {
	data, err := c.client.Get(ctx, probeKey(url)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get probe from cache: %w", err)
	}

	var entry cachedProbe
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal probe: %w", err)
	}
	return entry.toMediaInfo(), nil
}

// Set caches a probe result for url
func (c *ProbeCache) Set(ctx context.Context, url string, info *model.MediaInfo) error {
	data, err := json.Marshal(fromMediaInfo(info))
	if err != nil {
		return fmt.Errorf("failed to marshal probe: %w", err)
	}
	return c.client.Set(ctx, probeKey(url), data, c.ttl).Err()
}

// Delete removes a cached probe result
func (c *ProbeCache) Delete(ctx context.Context, url string) error {
	return c.client.Del(ctx, probeKey(url)).Err()
}

func probeKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "probe:" + hex.EncodeToString(sum[:])
}

// cachedProbe is the stored form of a MediaInfo; FormatDescriptor itself has
// no JSON tags since it never leaves the process otherwise.
type cachedProbe struct {
	Title    string         `json:"title"`
	Uploader string         `json:"uploader"`
	Duration *float64       `json:"duration,omitempty"`
	Formats  []cachedFormat `json:"formats"`
}

type cachedFormat struct {
	FormatID   string   `json:"format_id"`
	FormatNote string   `json:"format_note,omitempty"`
	Ext        string   `json:"ext"`
	Filesize   *int64   `json:"filesize,omitempty"`
	Tbr        *float64 `json:"tbr,omitempty"`
	VCodec     string   `json:"vcodec,omitempty"`
	ACodec     string   `json:"acodec,omitempty"`
	Height     *int     `json:"height,omitempty"`
}

func fromMediaInfo(info *model.MediaInfo) cachedProbe {
	entry := cachedProbe{
		Title:    info.Title,
		Uploader: info.Uploader,
		Duration: info.DurationSeconds,
		Formats:  make([]cachedFormat, 0, len(info.Formats)),
	}
	for _, f := range info.Formats {
		entry.Formats = append(entry.Formats, cachedFormat{
			FormatID:   f.FormatID,
			FormatNote: f.FormatNote,
			Ext:        f.Container,
			Filesize:   f.FileSizeBytes,
			Tbr:        f.BitrateKbps,
			VCodec:     f.VideoCodec,
			ACodec:     f.AudioCodec,
			Height:     f.HeightPixels,
		})
	}
	return entry
}

func (e cachedProbe) toMediaInfo() *model.MediaInfo {
	info := &model.MediaInfo{
		Title:           e.Title,
		Uploader:        e.Uploader,
		DurationSeconds: e.Duration,
		Formats:         make([]model.FormatDescriptor, 0, len(e.Formats)),
	}
	for _, f := range e.Formats {
		info.Formats = append(info.Formats, model.FormatDescriptor{
			FormatID:      f.FormatID,
			FormatNote:    f.FormatNote,
			Container:     f.Ext,
			FileSizeBytes: f.Filesize,
			BitrateKbps:   f.Tbr,
			VideoCodec:    f.VCodec,
			AudioCodec:    f.ACodec,
			HeightPixels:  f.Height,
		})
	}
	return info
}
