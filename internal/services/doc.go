// Package services implements clients for the remote endpoints playcache depends on.
//
// # Manifest Client
//
// [ManifestService] implements [ManifestFetcher]: a single HTTP GET of the playlist manifest
// followed by tolerant JSON decoding.
//
// The payload is {"items": [{"id": 1, "type": "IMAGE", "url": "https://..."}]}. Unknown fields
// are ignored, type tags are case-insensitive with unknown tags treated as images, and ids may be
// numbers or numeric strings. An item without a url makes the whole manifest invalid.
//
// # Error Handling
//
// Every failure (transport, timeout, non-2xx status, malformed body) wraps
// [shared.ErrManifestFetch]. The client never retries; callers start a new pass instead.
package services
