// Package store provides a DynamoDB record store for id-keyed records.
//
// Each record kind lives in its own table. A record is stored as its
// numeric id, an optimistic lock version, and a CBOR-encoded body whose
// size is bounded by [Config.MaxRecordSize]. Ids come from a single
// durable [Counter] shared by every table.
//
// # Tables
//
// [Table] is generic over the record type:
//
//	events := store.NewTable[Event](s, cfg.EventTable)
//	entry, err := events.Create(ctx, id, event)
//	entry, err = events.Update(ctx, id, changed, entry.Version)
//
// Writes are conditional. Create fails with [ErrAlreadyExists] if the id
// is taken, and Update fails with [ErrConcurrentModification] unless the
// stored version still matches the one that was read.
//
// # Relationships
//
// A [Registry] describes which inline id lists on an owner record refer to
// records in another table. The stream auditor uses it to find references
// left behind when a record is removed.
//
// # Errors
//
//   - [ErrNotFound] - record doesn't exist
//   - [ErrAlreadyExists] - record with id already exists
//   - [ErrConcurrentModification] - optimistic lock failed
//   - [ErrRecordTooLarge] - encoded body exceeds MaxRecordSize
package store
