// Package tasks runs sync passes that bring the local media cache in line with a remote playlist.
//
// # Sync Pass
//
// [MediaEngine.Run] fetches the manifest, resolves every item against the cache directory, hands
// the misses to a [transfer.Strategy], and folds the resulting events into a stream of
// [models.SyncState] values:
//
//  1. one [models.ProgressState] right after resolution, even when everything is cached
//  2. a [models.ProgressState] for each throttled progress step or completion
//  3. exactly one terminal [models.SuccessState] or [models.ErrorState]
//
// The channel closes after the terminal state. When the caller cancels the context the channel
// closes without a terminal state.
//
// # Failures
//
// The first transfer failure ends the pass. The engine cancels the remaining transfers and waits
// for the strategy to clean up before reporting the error. Errors the engine does not recognize,
// including panics, are wrapped with [shared.ErrUnexpected].
//
// # Pass History
//
// The optional [PassRecorder] receives a [models.SyncPass] at the start and end of each run
// (repositories.PassRecorder stores them in sqlite). Recorder errors are logged and otherwise ignored.
package tasks
