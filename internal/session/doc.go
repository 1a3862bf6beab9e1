// Package session owns the equipment grid of one calculator session. It is the only
// writer of the rows: edits, the startup restore and the periodic snapshot all go
// through it, and every mutation is followed by a full aggregation pass pushed to the
// presenter.
package session
