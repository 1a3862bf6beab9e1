package geometry

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidContainer is returned when a container dimension is not strictly positive.
var ErrInvalidContainer = errors.New("container dimensions must be positive")

// Dimensions is an item's depth, width and height in millimetres.
type Dimensions struct {
	Depth  float64
	Width  float64
	Height float64
}

// Empty reports whether every dimension is zero or negative.
func (d Dimensions) Empty() bool {
	return d.Depth <= 0 && d.Width <= 0 && d.Height <= 0
}

func (d Dimensions) sorted() [3]float64 {
	out := [3]float64{d.Depth, d.Width, d.Height}
	sort.Float64s(out[:])
	return out
}

// Container is the fixed storage envelope equipment has to fit inside.
type Container struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// DefaultContainer returns the 455 x 690 x 1260 mm cabinet.
func DefaultContainer() Container {
	return Container{Width: 455, Depth: 690, Height: 1260}
}

// NewContainer validates the dimensions and returns a Container.
func NewContainer(width, depth, height float64) (Container, error) {
	c := Container{Width: width, Depth: depth, Height: height}
	if err := c.Validate(); err != nil {
		return Container{}, err
	}
	return c, nil
}

// Validate checks that all three dimensions are positive.
func (c Container) Validate() error {
	if c.Width <= 0 || c.Depth <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: got %gx%gx%g", ErrInvalidContainer, c.Width, c.Depth, c.Height)
	}
	return nil
}

// Volume returns the container's volume in cubic millimetres.
func (c Container) Volume() float64 {
	return c.Width * c.Depth * c.Height
}

func (c Container) sorted() [3]float64 {
	out := [3]float64{c.Width, c.Depth, c.Height}
	sort.Float64s(out[:])
	return out
}

// Fits reports whether the item fits inside the container in some axis-aligned
// orientation: the smallest item side against the smallest container side, and so on.
func Fits(item Dimensions, c Container) bool {
	is := item.sorted()
	cs := c.sorted()
	return is[0] <= cs[0] && is[1] <= cs[1] && is[2] <= cs[2]
}
