// Package models defines domain entities and persistence interfaces for playcache.
//
// The package contains three categories of types:
//
// 1. Manifest data: what the remote playlist says should be cached
//   - [RemoteMediaItem] : one entry of the playlist (id, kind, source URL)
//   - [Manifest] : the ordered playlist
//
// 2. Sync output: what a consumer observes while a pass runs
//   - [DownloadProgress] : per-item tracker view
//   - [ProgressSnapshot] : immutable aggregate of all trackers
//   - [ResolvedMediaItem] : a cached file ready for display
//   - [SyncState] : closed union of [ProgressState], [SuccessState], and [ErrorState]
//
// 3. Persistent Entities: database-backed history
//   - [SyncPass] : one execution of the sync engine and its outcome
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
package models
