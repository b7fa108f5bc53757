// Package render draws dashboard charts as SVG.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/aclements/go-gg/gg"
	svg "github.com/ajstarks/svgo"
	"github.com/rotisserie/eris"
)

// Theme selects the colour set of a chart. It is passed explicitly to every
// renderer.
type Theme struct {
	Dark bool `json:"dark"`
}

// ParseTheme maps "dark" (any case) to the dark theme and everything else to light.
func ParseTheme(s string) Theme {
	return Theme{Dark: strings.EqualFold(strings.TrimSpace(s), "dark")}
}

// String returns "dark" or "light".
func (t Theme) String() string {
	if t.Dark {
		return "dark"
	}
	return "light"
}

// Foreground is the point and text colour.
func (t Theme) Foreground() color.RGBA {
	if t.Dark {
		return color.RGBA{R: 0x9e, G: 0xca, B: 0xe1, A: 0xff}
	}
	return color.RGBA{R: 0x31, G: 0x82, B: 0xbd, A: 0xff}
}

// Background is the canvas colour of empty plots.
func (t Theme) Background() color.RGBA {
	if t.Dark {
		return color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	}
	return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}

// neutral is the heatmap colour for a zero correlation.
func (t Theme) neutral() color.RGBA {
	if t.Dark {
		return color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}
	}
	return color.RGBA{R: 0xf7, G: 0xf7, B: 0xf7, A: 0xff}
}

// Size is the output size in pixels.
type Size struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// DefaultSize is used for any non-positive dimension.
var DefaultSize = Size{Width: 800, Height: 500}

func (s Size) orDefault() Size {
	if s.Width <= 0 {
		s.Width = DefaultSize.Width
	}
	if s.Height <= 0 {
		s.Height = DefaultSize.Height
	}
	return s
}

// writePlot renders p into a buffer first so a failing plot leaves w untouched.
func writePlot(w io.Writer, p *gg.Plot, size Size) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("render: plot failed: %v", r)
		}
	}()

	var buf bytes.Buffer
	if err := p.WriteSVG(&buf, size.Width, size.Height); err != nil {
		return eris.Wrap(err, "render: write svg")
	}
	_, err = buf.WriteTo(w)
	return eris.Wrap(err, "render: copy svg")
}

// writeEmpty draws a titled placeholder for a chart with no data.
func writeEmpty(w io.Writer, title string, theme Theme, size Size) error {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(size.Width, size.Height)
	canvas.Rect(0, 0, size.Width, size.Height, "fill:"+hex(theme.Background()))
	text := "text-anchor:middle;font-family:sans-serif;fill:" + hex(theme.Foreground())
	canvas.Text(size.Width/2, 30, title, text+";font-size:16px")
	canvas.Text(size.Width/2, size.Height/2, "No data for the current selection", text+";font-size:12px")
	canvas.End()

	_, err := buf.WriteTo(w)
	return eris.Wrap(err, "render: write empty svg")
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// blend mixes a and b, t=0 giving a and t=1 giving b.
func blend(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + t*(float64(y)-float64(x)) + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
