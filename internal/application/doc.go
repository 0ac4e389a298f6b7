// Package application provides application initialization and dependency wiring.
// It selects the persistence backend, builds the storage overlays, seeds them,
// and assembles the resolver, HTTP handlers, metrics and server so that the
// main package only deals with CLI parsing and process lifecycle.
package application
