// Package persistence converts the equipment grid to and from the flat snapshot kept
// in client storage: a JSON array of the non-blank rows in index order.
package persistence
