// Package application provides application initialization and dependency wiring.
// It opens the configured snapshot storage, builds the session with its presenter
// board, the HTTP handlers and router, the autosave scheduler and the HTTP server, and
// orders their startup and shutdown.
package application
