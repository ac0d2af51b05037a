// Package baseline records named classpath snapshots in SQLite so a later
// run can ask whether the same roots still produce an equal snapshot.
//
// Each baseline stores the roots it was taken from, the ordered file list,
// the combined digest, the per-file hash algorithm, and a run id. Loading a
// baseline rehydrates a snapshot.Snapshot, so comparison goes through the
// same Equal the rest of the module uses.
//
// Schema changes bump schemaVersion in schema.go; an existing database with
// another version is rejected with ErrSchemaMismatch and has to be deleted.
package baseline
