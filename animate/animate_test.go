package animate

import (
	"bytes"
	"errors"
	"image/gif"
	"path/filepath"
	"testing"
	"time"

	route "github.com/alexjamesmalcolm/optimize-thruster-route"
)

func TestSaveWithoutFrames(t *testing.T) {
	a := NewAnimation(nil, []route.Coord2D{{0, 0.5}}, Options{})
	if err := a.Save(filepath.Join(t.TempDir(), "never.gif"), 100*time.Millisecond); !errors.Is(err, ErrEmptyFrameSequence) {
		t.Fatalf("expected ErrEmptyFrameSequence, got %v", err)
	}
	var buf bytes.Buffer
	if err := a.Encode(&buf, time.Second); !errors.Is(err, ErrEmptyFrameSequence) {
		t.Fatalf("expected ErrEmptyFrameSequence, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("nothing should have been written")
	}
}

func TestConstructAndEncode(t *testing.T) {
	positions := []route.Coord2D{{0, 0.5}, {0.5, 0.75}, {1, 1}}
	obstacles := []route.Obstacle{{Position: route.Coord2D{0.5, 0.5}, Radius: 0.1}}
	a := NewAnimation(obstacles, positions, Options{Width: 200, Height: 100})
	a.Construct()
	if a.Frames() != len(positions) {
		t.Fatalf("expected %d frames, got %d", len(positions), a.Frames())
	}
	var buf bytes.Buffer
	if err := a.Encode(&buf, 100*time.Millisecond); err != nil {
		t.Fatalf("encode: %s", err)
	}
	decoded, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if len(decoded.Image) != len(positions) {
		t.Fatalf("expected %d images, got %d", len(positions), len(decoded.Image))
	}
	for i, d := range decoded.Delay {
		if d != 10 {
			t.Fatalf("frame %d: delay %d, expected 10", i, d)
		}
	}
	// Second frame: vehicle at (100, 75), obstacle centered at (100, 50) with a 10 px radius.
	frame := a.frames[1]
	if got := frame.At(100, 75); got != Orange {
		t.Fatalf("vehicle pixel is %v", got)
	}
	if got := frame.At(100, 45); got != White {
		t.Fatalf("obstacle pixel is %v", got)
	}
	if got := frame.ColorIndexAt(5, 5); got != 0 {
		t.Fatalf("background pixel has index %d", got)
	}
}

func TestSaveFile(t *testing.T) {
	a := NewAnimation(nil, []route.Coord2D{{0.1, 0.1}, {0.2, 0.2}}, Options{Width: 50, Height: 50})
	a.Construct()
	path := filepath.Join(t.TempDir(), "animation.gif")
	if err := a.Save(path, 50*time.Millisecond); err != nil {
		t.Fatalf("save: %s", err)
	}
}
