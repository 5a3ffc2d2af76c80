package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// VoiceCatalog caches a service's voice list on disk.
type VoiceCatalog struct {
	service   string
	lister    VoiceLister
	cacheFile string
	maxAge    time.Duration
}

type cachedVoices struct {
	Service     string    `json:"service"`
	Voices      []Voice   `json:"voices"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewVoiceCatalog creates a catalog for service, caching under cacheDir.
func NewVoiceCatalog(service string, lister VoiceLister, cacheDir string, maxAge time.Duration) (*VoiceCatalog, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}
	return &VoiceCatalog{
		service:   service,
		lister:    lister,
		cacheFile: filepath.Join(cacheDir, service+"_voices.json"),
		maxAge:    maxAge,
	}, nil
}

// Voices returns the cached list while it is fresh, otherwise fetches a new
// one. A stale cache is served if the fetch fails.
func (vc *VoiceCatalog) Voices(ctx context.Context, refresh bool) ([]Voice, error) {
	if !refresh && vc.isCacheFresh() {
		if voices, err := vc.loadFromCache(); err == nil {
			return voices, nil
		}
	}

	voices, err := vc.lister.ListVoices(ctx)
	if err != nil {
		logrus.WithError(err).Warn("voice list fetch failed, trying stale cache")
		if cached, cacheErr := vc.loadFromCache(); cacheErr == nil {
			return cached, nil
		}
		return nil, fmt.Errorf("failed to list voices and no cache available: %w", err)
	}

	if err := vc.saveToCache(voices); err != nil {
		logrus.WithError(err).Warn("failed to save voice cache")
	}
	return voices, nil
}

// ClearCache removes the cache file.
func (vc *VoiceCatalog) ClearCache() error {
	if err := os.Remove(vc.cacheFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear voice cache: %w", err)
	}
	return nil
}

func (vc *VoiceCatalog) isCacheFresh() bool {
	info, err := os.Stat(vc.cacheFile)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < vc.maxAge
}

func (vc *VoiceCatalog) loadFromCache() ([]Voice, error) {
	file, err := os.Open(vc.cacheFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	var cached cachedVoices
	if err := json.NewDecoder(file).Decode(&cached); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"voices":       len(cached.Voices),
		"last_updated": cached.LastUpdated.Format(time.RFC3339),
	}).Debug("loaded voices from cache")
	return cached.Voices, nil
}

func (vc *VoiceCatalog) saveToCache(voices []Voice) error {
	file, err := os.Create(vc.cacheFile)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cachedVoices{
		Service:     vc.service,
		Voices:      voices,
		LastUpdated: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"voices": len(voices),
		"file":   vc.cacheFile,
	}).Debug("saved voices to cache")
	return nil
}
