// Package transfer implements the acquisition strategies used by the sync engine.
//
// # Strategies
//
// Both strategies implement [Strategy] and honor the same contract: events for a job arrive in
// order (progress, then exactly one complete or failed), and Acquire returns when every job is
// complete, one has failed, or the context ends.
//
//  1. [Streamer] : reads each HTTP body directly in fixed-size chunks (8 KiB by default) and
//     emits received/total after every chunk. Transfers run concurrently under an errgroup with
//     a concurrency limit, and a rate limiter paces how quickly new transfers start.
//
//  2. [Poller] : hands every job to a [DownloadQueue] and issues one batched status query per
//     tick (500 ms by default). [LocalQueue] is the in-process queue implementation.
//
// # Files
//
// Transfers write to a hidden ".<key>.*.part" temp file in the cache directory and rename it into
// place on success, so a partially written file is never observed as a cache hit. Temp files are
// removed on failure and cancellation.
package transfer
