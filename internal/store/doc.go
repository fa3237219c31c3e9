// Package store persists translation records in a document collection and
// streams live snapshots of that collection to subscribers. Two backends are
// provided: Firestore for the shared remote collection and SQLite for a
// single-machine collection with an in-process change feed.
package store
