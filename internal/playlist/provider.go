// Package playlist provides the catalog lookups zone playback draws on:
// resolving a playlist index to its tracks and a (source, index) pair to a
// single playable track, mirroring the linear catalog-lookup style used
// elsewhere in this codebase for static, config-keyed collections.
package playlist

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/snapdog/snapdog/internal/apperr"
	"github.com/snapdog/snapdog/internal/models"
)

// TrackSpec is one catalog entry, as authored in the playlist file.
type TrackSpec struct {
	Title      string `yaml:"title"`
	Artist     string `yaml:"artist,omitempty"`
	Album      string `yaml:"album,omitempty"`
	URL        string `yaml:"url"`
	DurationMs int64  `yaml:"duration_ms,omitempty"`
	CoverURL   string `yaml:"cover_url,omitempty"`
	Genre      string `yaml:"genre,omitempty"`
	Year       int    `yaml:"year,omitempty"`
}

// PlaylistSpec is one catalog playlist, as authored in the playlist file.
type PlaylistSpec struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Tracks []TrackSpec `yaml:"tracks"`
}

// catalogFile is the on-disk shape of a single source's playlist file.
type catalogFile struct {
	Playlists []PlaylistSpec `yaml:"playlists"`
}

// StaticProvider resolves playlist/track lookups against an in-memory
// catalog loaded once at startup. It never mutates after construction, so
// it needs no locking.
type StaticProvider struct {
	bySource map[string][]PlaylistSpec
}

// NewStaticProvider builds a provider from already-loaded per-source
// catalogs.
func NewStaticProvider(bySource map[string][]PlaylistSpec) *StaticProvider {
	return &StaticProvider{bySource: bySource}
}

// LoadStaticProvider reads one YAML catalog file per (source -> path)
// mapping and builds a StaticProvider from the result.
func LoadStaticProvider(paths map[string]string) (*StaticProvider, error) {
	bySource := make(map[string][]PlaylistSpec, len(paths))
	for source, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("playlist: reading catalog %q: %w", path, err)
		}
		var cf catalogFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("playlist: parsing catalog %q: %w", path, err)
		}
		bySource[source] = cf.Playlists
	}
	return NewStaticProvider(bySource), nil
}

func (p *StaticProvider) playlist(source string, index int) (PlaylistSpec, error) {
	specs, ok := p.bySource[source]
	if !ok {
		return PlaylistSpec{}, apperr.NotFoundf("playlist: unknown source %q", source)
	}
	if index < 0 || index >= len(specs) {
		return PlaylistSpec{}, apperr.NotFoundf("playlist: source %q has no playlist at index %d", source, index)
	}
	return specs[index], nil
}

// GetPlaylist returns the playlist at index within source.
func (p *StaticProvider) GetPlaylist(_ context.Context, source string, index int) (models.PlaylistInfo, error) {
	spec, err := p.playlist(source, index)
	if err != nil {
		return models.PlaylistInfo{}, err
	}
	return models.PlaylistInfo{
		Source:     source,
		Index:      index,
		PlaylistID: spec.ID,
		Name:       spec.Name,
		TrackCount: len(spec.Tracks),
	}, nil
}

// TrackCount returns the number of tracks in the playlist at
// playlistIndex within source.
func (p *StaticProvider) TrackCount(_ context.Context, source string, playlistIndex int) (int, error) {
	spec, err := p.playlist(source, playlistIndex)
	if err != nil {
		return 0, err
	}
	return len(spec.Tracks), nil
}

// GetTrack returns the track at trackIndex within the playlist at
// playlistIndex within source.
func (p *StaticProvider) GetTrack(_ context.Context, source string, playlistIndex, trackIndex int) (models.TrackInfo, error) {
	spec, err := p.playlist(source, playlistIndex)
	if err != nil {
		return models.TrackInfo{}, err
	}
	if trackIndex < 0 || trackIndex >= len(spec.Tracks) {
		return models.TrackInfo{}, apperr.NotFoundf("playlist: source %q playlist %d has no track at index %d", source, playlistIndex, trackIndex)
	}
	t := spec.Tracks[trackIndex]
	return models.TrackInfo{
		Source:     source,
		Index:      trackIndex,
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      t.Album,
		URL:        t.URL,
		DurationMs: t.DurationMs,
		CoverURL:   t.CoverURL,
		Genre:      t.Genre,
		Year:       t.Year,
	}, nil
}
