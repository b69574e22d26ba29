package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
)

// maxManifestBytes bounds the manifest body read into memory.
const maxManifestBytes = 8 << 20

// ManifestService fetches playlist manifests over HTTP.
type ManifestService struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *log.Logger
}

// NewManifestService creates a manifest client. A nil client uses [http.DefaultClient]; a
// non-positive timeout leaves only the caller's context in charge.
func NewManifestService(client *http.Client, timeout time.Duration, logger *log.Logger) *ManifestService {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &ManifestService{httpClient: client, timeout: timeout, logger: logger}
}

type manifestPayload struct {
	Items []manifestItem `json:"items"`
}

type manifestItem struct {
	ID   json.RawMessage `json:"id"`
	Type json.RawMessage `json:"type"`
	URL  string          `json:"url"`
}

// Fetch performs a GET request against manifestURL and decodes the playlist.
func (s *ManifestService) Fetch(ctx context.Context, manifestURL string) (*models.Manifest, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrManifestFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrManifestFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrManifestFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", shared.ErrManifestFetch, resp.StatusCode)
	}

	manifest, err := DecodeManifest(body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("fetched manifest", "url", manifestURL, "items", manifest.TotalItems(), "elapsed", time.Since(start))
	return manifest, nil
}

// DecodeManifest parses a manifest document.
func DecodeManifest(data []byte) (*models.Manifest, error) {
	var payload manifestPayload
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed manifest: %v", shared.ErrManifestFetch, err)
	}

	manifest := &models.Manifest{Items: make([]models.RemoteMediaItem, 0, len(payload.Items))}
	for i, raw := range payload.Items {
		url := strings.TrimSpace(raw.URL)
		if url == "" {
			return nil, fmt.Errorf("%w: item %d has no url", shared.ErrManifestFetch, i)
		}

		manifest.Items = append(manifest.Items, models.RemoteMediaItem{
			ID:        decodeID(raw.ID),
			Kind:      decodeKind(raw.Type),
			SourceURL: url,
		})
	}
	return manifest, nil
}

// decodeID keeps string ids as they are and formats numbers as their decimal text.
// Anything else becomes "".
func decodeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func decodeKind(raw json.RawMessage) models.MediaKind {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Image
	}
	return models.ParseMediaKind(s)
}
