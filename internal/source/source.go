// Package source implements the source registry and load-tracks
// algorithm (§4.H): pattern-routed resolution of a track identifier to
// one or more TrackData results.
package source

import (
	"context"
	"errors"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ecliptia/aelira/internal/track"
)

// FileExists reports whether path names a file on disk, the production
// existsLocally predicate for LoadTracks.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadType mirrors Lavalink's loadType discriminant.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// TrackData is one playable result: the encoded blob plus its decoded
// info, alongside the empty plugin/user-data objects Lavalink clients
// expect to find.
type TrackData struct {
	Encoded    string         `json:"encoded"`
	Info       track.Info     `json:"info"`
	PluginInfo map[string]any `json:"pluginInfo"`
	UserData   map[string]any `json:"userData"`
}

// PlaylistInfo names a playlist and the index of its selected track.
type PlaylistInfo struct {
	Name          string `json:"name"`
	SelectedTrack int    `json:"selectedTrack"`
}

// PlaylistData is the "data" payload when LoadType is "playlist".
type PlaylistData struct {
	Info       PlaylistInfo   `json:"info"`
	PluginInfo map[string]any `json:"pluginInfo"`
	Tracks     []TrackData    `json:"tracks"`
}

// LoadResult is the `{loadType, data}` envelope returned by
// /v4/loadtracks and by a Source's Resolve/Search methods.
type LoadResult struct {
	LoadType LoadType `json:"loadType"`
	Data     any      `json:"data"`
}

// EmptyResult builds the canonical "nothing found" response.
func EmptyResult() LoadResult {
	return LoadResult{LoadType: LoadTypeEmpty, Data: map[string]any{}}
}

// TrackResult wraps a single resolved track.
func TrackResult(t TrackData) LoadResult {
	return LoadResult{LoadType: LoadTypeTrack, Data: t}
}

// SearchResult wraps a list of candidate tracks.
func SearchResult(tracks []TrackData) LoadResult {
	return LoadResult{LoadType: LoadTypeSearch, Data: tracks}
}

// ErrorResult reports a resolution failure to the client, never an
// internal panic.
func ErrorResult(message, severity, cause string) LoadResult {
	return LoadResult{LoadType: LoadTypeError, Data: map[string]string{
		"message":  message,
		"severity": severity,
		"cause":    cause,
	}}
}

// Source resolves and streams tracks for one backend (local files, a
// remote catalog, etc).
type Source interface {
	Name() string
	Priority() int
	SearchTerms() []string
	Patterns() []string
	Search(ctx context.Context, query, searchType string) LoadResult
	Resolve(ctx context.Context, identifier string) LoadResult
	LoadStream(ctx context.Context, identifier string) (io.ReadCloser, error)
}

// ErrNoSourceForIdentifier is returned by LoadStream when no registered
// source's pattern or search-term prefix matches.
var ErrNoSourceForIdentifier = errors.New("source: no registered source matches identifier")

type compiledPattern struct {
	regex      *regexp.Regexp
	sourceName string
	priority   int
}

// Manager is the registry described in §4.H: sources keyed by name,
// compiled patterns kept sorted by descending priority, and a
// prefix->source map for `prefix:query` search dispatch.
type Manager struct {
	mu            sync.RWMutex
	sources       map[string]Source
	searchTermMap map[string]string
	patterns      []compiledPattern
}

// NewManager builds an empty registry.
func NewManager() *Manager {
	return &Manager{
		sources:       make(map[string]Source),
		searchTermMap: make(map[string]string),
	}
}

// Register adds source, compiling its patterns and indexing its search
// terms. Malformed patterns are skipped rather than failing startup.
func (m *Manager) Register(s Source) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := s.Name()
	priority := s.Priority()

	for _, term := range s.SearchTerms() {
		m.searchTermMap[term] = name
	}

	for _, pattern := range s.Patterns() {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		m.patterns = append(m.patterns, compiledPattern{regex: re, sourceName: name, priority: priority})
	}

	sort.SliceStable(m.patterns, func(i, j int) bool {
		return m.patterns[i].priority > m.patterns[j].priority
	})

	m.sources[name] = s
}

// LoadTracks runs the four-step resolution algorithm from §4.H.
func (m *Manager) LoadTracks(ctx context.Context, identifier string, existsLocally func(string) bool) LoadResult {
	m.mu.RLock()
	local, hasLocal := m.sources["local"]
	patterns := append([]compiledPattern(nil), m.patterns...)
	m.mu.RUnlock()

	if hasLocal && existsLocally(identifier) {
		res := local.Resolve(ctx, identifier)
		if res.LoadType != LoadTypeEmpty {
			return res
		}
	}

	for _, p := range patterns {
		if !p.regex.MatchString(identifier) {
			continue
		}
		m.mu.RLock()
		s, ok := m.sources[p.sourceName]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		res := s.Resolve(ctx, identifier)
		if res.LoadType != LoadTypeEmpty {
			return res
		}
	}

	if prefix, query, ok := splitSearchPrefix(identifier); ok {
		m.mu.RLock()
		sourceName, known := m.searchTermMap[prefix]
		m.mu.RUnlock()
		if known {
			m.mu.RLock()
			s, ok := m.sources[sourceName]
			m.mu.RUnlock()
			if ok {
				return s.Search(ctx, query, "track")
			}
		}
	}

	results := m.unifiedSearch(ctx, identifier)
	if len(results) == 0 {
		return EmptyResult()
	}
	return SearchResult(results)
}

func (m *Manager) unifiedSearch(ctx context.Context, query string) []TrackData {
	m.mu.RLock()
	sources := make([]Source, 0, len(m.sources))
	for _, s := range m.sources {
		sources = append(sources, s)
	}
	m.mu.RUnlock()

	var results []TrackData
	for _, s := range sources {
		res := s.Search(ctx, query, "track")
		switch data := res.Data.(type) {
		case []TrackData:
			results = append(results, data...)
		case TrackData:
			results = append(results, data)
		}
	}
	return results
}

// LoadStream opens a byte stream for identifier: via the local source when
// identifier names an existing file (the bare path local.Resolve stores as
// a track's identifier), otherwise via whichever source's pattern or
// search prefix matches it.
func (m *Manager) LoadStream(ctx context.Context, identifier string) (io.ReadCloser, error) {
	m.mu.RLock()
	local, hasLocal := m.sources["local"]
	patterns := append([]compiledPattern(nil), m.patterns...)
	m.mu.RUnlock()

	if hasLocal && FileExists(identifier) {
		return local.LoadStream(ctx, identifier)
	}

	for _, p := range patterns {
		if !p.regex.MatchString(identifier) {
			continue
		}
		m.mu.RLock()
		s, ok := m.sources[p.sourceName]
		m.mu.RUnlock()
		if ok {
			return s.LoadStream(ctx, identifier)
		}
	}

	if prefix, _, ok := splitSearchPrefix(identifier); ok {
		m.mu.RLock()
		sourceName, known := m.searchTermMap[prefix]
		m.mu.RUnlock()
		if known {
			m.mu.RLock()
			s, ok := m.sources[sourceName]
			m.mu.RUnlock()
			if ok {
				return s.LoadStream(ctx, identifier)
			}
		}
	}

	return nil, ErrNoSourceForIdentifier
}

// splitSearchPrefix splits "prefix:query" the way the original does:
// the prefix must be more than one character so a Windows-style drive
// letter or a bare colon doesn't get treated as a search prefix.
func splitSearchPrefix(identifier string) (prefix, query string, ok bool) {
	idx := strings.IndexByte(identifier, ':')
	if idx <= 1 {
		return "", "", false
	}
	return identifier[:idx], identifier[idx+1:], true
}
