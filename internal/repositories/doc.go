// Package repositories implements SQLite persistence for sync pass history.
//
// [SyncPassRepository] implements models.Repository[*models.SyncPass] with CRUD operations and
// soft deletes via deleted_at timestamps. Deleted records are excluded from queries by default.
//
// [PassRecorder] adapts the repository to the engine's tasks.PassRecorder hook so that every
// pass is stored when it starts and updated when it ends.
//
// Sequence numbers provide stable, human-readable ordering (pass #42) independent of UUIDs and
// timestamps. [NextSequence] atomically increments per-table counters kept in dedicated sequence tables.
package repositories
