// Package calculator evaluates equipment rows against a container and aggregates the
// accepted volumes into the number of containers required.
package calculator
