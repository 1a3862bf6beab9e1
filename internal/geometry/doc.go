// Package geometry decides whether a box-shaped item fits inside a fixed container
// when it may be rotated onto any axis.
package geometry
