// Package display turns calculator results into localized text for the presentation
// boundary: rounded, thousands-grouped numbers, the unmeasurable sentinel and the
// error banner naming rows that exceed the container.
package display
