// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through the lifecycle of a sync pass:
//  1. [SyncView] : Overall progress bar plus the least-progressed active downloads
//  2. [SlideshowView] : Cycles through the resolved media on a timer
//  3. [LibraryView] : Browse and jump to any cached item
//  4. [EmptyView] : The playlist resolved to nothing
//  5. [ErrorView] : The pass failed; r retries
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// States flow through the channel returned by [tasks.SyncEngine.Run]; each pass gets a generation number so messages
// from an abandoned pass never reach the current one.
package ui
