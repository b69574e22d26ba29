package models

import (
	"encoding/json"
	"net/url"
	"path/filepath"
)

// MediaKind tells consumers how to render a cached file.
type MediaKind int

const (
	Image MediaKind = iota
	Video
)

func (k MediaKind) String() string {
	switch k {
	case Video:
		return "VIDEO"
	default:
		return "IMAGE"
	}
}

// ParseMediaKind maps a manifest type tag to a [MediaKind].
//
// Only the exact tag "VIDEO" is a [Video]; anything else is an [Image].
func ParseMediaKind(s string) MediaKind {
	if s == "VIDEO" {
		return Video
	}
	return Image
}

func (k MediaKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *MediaKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*k = Image
		return nil
	}
	*k = ParseMediaKind(s)
	return nil
}

// RemoteMediaItem is one playlist entry. SourceURL is its identity.
type RemoteMediaItem struct {
	ID        string    `json:"id"`
	Kind      MediaKind `json:"type"`
	SourceURL string    `json:"url"`
}

// Manifest is the ordered playlist returned by the manifest endpoint.
type Manifest struct {
	Items []RemoteMediaItem `json:"items"`
}

// TotalItems returns the number of playlist entries.
func (m *Manifest) TotalItems() int {
	if m == nil {
		return 0
	}
	return len(m.Items)
}

// ResolvedMediaItem is a cached file ready for display.
type ResolvedMediaItem struct {
	URI  string    `json:"uri"`
	Path string    `json:"path"`
	Name string    `json:"name"`
	Kind MediaKind `json:"type"`
}

// NewResolvedMediaItem builds the display record for a file at path.
func NewResolvedMediaItem(path string, kind MediaKind) ResolvedMediaItem {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return ResolvedMediaItem{
		URI:  uri.String(),
		Path: path,
		Name: filepath.Base(path),
		Kind: kind,
	}
}
