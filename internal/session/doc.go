// Package session holds the application state of a translation screen:
// it submits text to a translator, persists successful translations to a
// store, and mirrors the store's live snapshots into a list sorted newest
// first. It replaces the processor of earlier tools with an event-driven
// session that UI layers observe through OnChange.
package session
