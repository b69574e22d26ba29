// package services defines the clients playcache uses to talk to remote HTTP endpoints
package services

import (
	"context"

	"github.com/desertthunder/playcache/internal/models"
)

// ManifestFetcher retrieves the playlist manifest describing what should be cached.
type ManifestFetcher interface {
	// Fetch performs one GET of manifestURL and decodes the playlist. There are no retries.
	Fetch(ctx context.Context, manifestURL string) (*models.Manifest, error)
}
