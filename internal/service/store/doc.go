// Package store holds the in-memory ordered alarm collection.
//
// Store is the only owner of alarm mutation. Every mutating call persists the
// whole list synchronously before returning; a persistence failure keeps the
// in-memory effect and is reported wrapped in alarm.ErrPersistenceFailed.
package store
