// Package server exposes sync passes over HTTP for displays that cannot host a terminal.
//
// # Feed
//
// A [Feed] runs at most one pass at a time and fans every [models.SyncState] out to subscribers
// as a [models.StateView]. Slow subscribers lose older views, never the newest one. After a
// successful pass the feed cycles through the resolved items on a timer until the next pass starts.
//
// # Routes
//
//	GET  /health    → liveness
//	GET  /state     → latest state view and whether a pass is running
//	GET  /events    → server-sent events, one "state" event per view
//	GET  /slideshow → item currently on display, 404 when there is none
//	POST /sync      → start a pass, 409 while one is running
//
// [NewRouter] mounts the routes on a chi router with request id, real ip, panic recovery and
// request logging middleware; [Serve] runs it until its context is cancelled.
package server
