package canvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"
	"sync"
)

const (
	Width        = 640
	Height       = 400
	DefaultBrush = 5.0
)

var background = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}

// Stroke is one segment of a freehand line.
type Stroke struct {
	PrevX, PrevY float64
	X, Y         float64
	Color        string
	Width        float64
}

// Canvas is an accumulating raster. It only ever gains paint until Clear.
type Canvas struct {
	mu      sync.Mutex
	img     *image.RGBA
	strokes []Stroke
}

func New() *Canvas {
	c := &Canvas{img: image.NewRGBA(image.Rect(0, 0, Width, Height))}
	c.fill()
	return c
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill()
	c.strokes = nil
}

// Draw renders a stroke and records it in the stroke log. Strokes are never
// deduplicated.
func (c *Canvas) Draw(s Stroke) error {
	ink, err := ParseHexColor(s.Color)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paint(s, ink)
	c.strokes = append(c.strokes, s)
	return nil
}

func (c *Canvas) Strokes() []Stroke {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Stroke(nil), c.strokes...)
}

func (c *Canvas) At(x, y int) color.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img.RGBAAt(x, y)
}

// SnapshotPNG encodes the current raster.
func (c *Canvas) SnapshotPNG() ([]byte, error) {
	c.mu.Lock()
	frame := image.NewRGBA(c.img.Bounds())
	copy(frame.Pix, c.img.Pix)
	c.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	return buf.Bytes(), nil
}

// Replay rebuilds a canvas from a stroke log. Strokes with unusable colours are
// skipped.
func Replay(strokes []Stroke) *Canvas {
	c := New()
	for _, s := range strokes {
		_ = c.Draw(s)
	}
	return c
}

func (c *Canvas) fill() {
	for i := 0; i < len(c.img.Pix); i += 4 {
		c.img.Pix[i] = background.R
		c.img.Pix[i+1] = background.G
		c.img.Pix[i+2] = background.B
		c.img.Pix[i+3] = background.A
	}
}

// paint stamps round brush discs along the segment, giving round caps and joins.
func (c *Canvas) paint(s Stroke, ink color.RGBA) {
	width := s.Width
	if width <= 0 {
		width = DefaultBrush
	}
	radius := width / 2
	dx := s.X - s.PrevX
	dy := s.Y - s.PrevY
	steps := int(math.Ceil(math.Hypot(dx, dy)))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c.stamp(s.PrevX+dx*t, s.PrevY+dy*t, radius, ink)
	}
}

func (c *Canvas) stamp(cx, cy, radius float64, ink color.RGBA) {
	bounds := c.img.Bounds()
	minX := max(int(math.Floor(cx-radius)), bounds.Min.X)
	maxX := min(int(math.Ceil(cx+radius)), bounds.Max.X-1)
	minY := max(int(math.Floor(cy-radius)), bounds.Min.Y)
	maxY := min(int(math.Ceil(cy+radius)), bounds.Max.Y-1)
	r2 := radius * radius
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5 - cx
			py := float64(y) + 0.5 - cy
			if px*px+py*py <= r2 {
				c.img.SetRGBA(x, y, ink)
			}
		}
	}
}

var ErrInvalidColor = errors.New("invalid colour")

// ParseHexColor accepts #rgb and #rrggbb.
func ParseHexColor(raw string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, raw)
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, raw)
	}
	return color.RGBA{R: uint8(value >> 16), G: uint8(value >> 8), B: uint8(value), A: 0xff}, nil
}
