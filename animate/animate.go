// Package animate renders a planned trajectory as an animated GIF.
//
// Positions are expected in the unit square (see route.Result.Normalized) and
// are scaled to a fixed pixel canvas, one frame per time step.
package animate

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"math"
	"os"
	"time"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
)

// ErrEmptyFrameSequence is returned when saving before any frame was constructed.
var ErrEmptyFrameSequence = errors.New("no frames to save, call Construct first")

// vehicleHalfSize is half the side of the vehicle square, in pixels.
const vehicleHalfSize = 10

var (
	// Orange is the vehicle color.
	Orange = color.RGBA{0xff, 0xa5, 0x00, 0xff}
	// White is the obstacle color.
	White = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Options configures the canvas. The zero value is an 800x600 black canvas.
type Options struct {
	Width, Height int
	Background    color.Color
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.Background == nil {
		o.Background = color.Black
	}
	return o
}

// Animation holds the frames of a trajectory.
type Animation struct {
	obstacles []route.Obstacle
	positions []route.Coord2D
	opts      Options
	palette   color.Palette
	frames    []*image.Paletted
}

// NewAnimation returns an animation of the provided positions (in the unit square).
// Obstacles use the same normalized coordinates; their radius scales with the smaller canvas side.
func NewAnimation(obstacles []route.Obstacle, positions []route.Coord2D, opts Options) *Animation {
	opts = opts.withDefaults()
	return &Animation{
		obstacles: obstacles,
		positions: positions,
		opts:      opts,
		palette:   color.Palette{opts.Background, White, Orange},
	}
}

// Frames returns the number of constructed frames.
func (a *Animation) Frames() int {
	return len(a.frames)
}

// Construct draws one frame per position, replacing any previous frames.
func (a *Animation) Construct() {
	a.frames = make([]*image.Paletted, 0, len(a.positions))
	for _, p := range a.positions {
		a.frames = append(a.frames, a.drawFrame(a.toPixels(p)))
	}
}

// Save writes the frames to path as a looping GIF.
func (a *Animation) Save(path string, frameDuration time.Duration) error {
	if len(a.frames) == 0 {
		return ErrEmptyFrameSequence
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.Encode(f, frameDuration); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes the frames to w as a looping GIF.
func (a *Animation) Encode(w io.Writer, frameDuration time.Duration) error {
	if len(a.frames) == 0 {
		return ErrEmptyFrameSequence
	}
	// GIF delays are in hundredths of a second.
	delay := int(frameDuration / (10 * time.Millisecond))
	anim := &gif.GIF{LoopCount: 0}
	for _, frame := range a.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}
	return gif.EncodeAll(w, anim)
}

func (a *Animation) toPixels(p route.Coord2D) image.Point {
	return image.Pt(int(math.Round(p.X()*float64(a.opts.Width))), int(math.Round(p.Y()*float64(a.opts.Height))))
}

func (a *Animation) drawFrame(vehicle image.Point) *image.Paletted {
	bounds := image.Rect(0, 0, a.opts.Width, a.opts.Height)
	frame := image.NewPaletted(bounds, a.palette) // index 0 is the background

	scale := float64(a.opts.Width)
	if a.opts.Height < a.opts.Width {
		scale = float64(a.opts.Height)
	}
	for _, o := range a.obstacles {
		center := a.toPixels(o.Position)
		r := o.Radius * scale
		box := image.Rect(center.X-int(r)-1, center.Y-int(r)-1, center.X+int(r)+2, center.Y+int(r)+2).Intersect(bounds)
		for y := box.Min.Y; y < box.Max.Y; y++ {
			for x := box.Min.X; x < box.Max.X; x++ {
				dx, dy := float64(x-center.X), float64(y-center.Y)
				if dx*dx+dy*dy <= r*r {
					frame.SetColorIndex(x, y, 1)
				}
			}
		}
	}

	square := image.Rect(vehicle.X-vehicleHalfSize, vehicle.Y-vehicleHalfSize, vehicle.X+vehicleHalfSize+1, vehicle.Y+vehicleHalfSize+1).Intersect(bounds)
	for y := square.Min.Y; y < square.Max.Y; y++ {
		for x := square.Min.X; x < square.Max.X; x++ {
			frame.SetColorIndex(x, y, 2)
		}
	}
	return frame
}
