package reel

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	FrameWidth  = 1080
	FrameHeight = 1920

	captionWrapColumns = 40
	captionFontSize    = 60
	captionBoxWidth    = 1000
	captionTop         = 1500
	captionStroke      = 2
)

// FitFrame scales w×h to the frame height, then shrinks it to the frame
// width if it is still too wide. Aspect ratio is kept.
func FitFrame(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}

	fw := float64(w) * FrameHeight / float64(h)
	fh := float64(FrameHeight)
	if fw > FrameWidth {
		fh = fh * FrameWidth / fw
		fw = FrameWidth
	}

	return max(1, int(math.Round(fw))), max(1, int(math.Round(fh)))
}

// RenderSlide centers src, fitted, on a black full-frame canvas.
func RenderSlide(src image.Image) (*image.RGBA, error) {
	b := src.Bounds()
	w, h := FitFrame(b.Dx(), b.Dy())
	if w == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	dst := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	x := (FrameWidth - w) / 2
	y := (FrameHeight - h) / 2
	draw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), src, b, draw.Over, nil)

	return dst, nil
}

// Wrap fills text into lines of at most width characters. Runs of
// whitespace, newlines included, collapse to one space; a word longer than
// width is split across lines.
func Wrap(text string, width int) []string {
	width = max(width, 1)
	var lines []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > 0 {
			room := width - len(cur)
			if len(cur) > 0 {
				room-- // separating space
			}
			switch {
			case len(w) <= room:
				if len(cur) > 0 {
					cur = append(cur, ' ')
				}
				cur = append(cur, w...)
				w = nil
			case len(w) > width && room > 0:
				// An overlong word fills whatever is left of the line.
				if len(cur) > 0 {
					cur = append(cur, ' ')
				}
				cur = append(cur, w[:room]...)
				w = w[room:]
				flush()
			default:
				flush()
			}
		}
	}
	flush()

	return lines
}

// CaptionRenderer draws caption overlays: white text with a black outline
// on a transparent full-frame canvas.
type CaptionRenderer struct {
	face font.Face
}

// NewCaptionRenderer loads the TrueType or OpenType font at fontPath, or
// the embedded Go Regular face when fontPath is empty.
func NewCaptionRenderer(fontPath string) (*CaptionRenderer, error) {
	data := goregular.TTF
	if fontPath != "" {
		b, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read caption font: %w", err)
		}
		data = b
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse caption font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    captionFontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("load caption font face: %w", err)
	}

	return &CaptionRenderer{face: face}, nil
}

// Lines wraps caption at 40 columns and then splits any line that would
// still overflow the caption box.
func (r *CaptionRenderer) Lines(caption string) []string {
	var out []string
	for _, line := range Wrap(caption, captionWrapColumns) {
		out = append(out, r.fitWidth(line)...)
	}
	return out
}

func (r *CaptionRenderer) fitWidth(line string) []string {
	if r.width(line) <= captionBoxWidth {
		return []string{line}
	}

	var out []string
	cur := ""
	for _, word := range strings.Fields(line) {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if cur != "" && r.width(next) > captionBoxWidth {
			out = append(out, cur)
			cur = word
			continue
		}
		cur = next
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func (r *CaptionRenderer) width(s string) int {
	return font.MeasureString(r.face, s).Ceil()
}

// Render draws caption as a centered block whose top sits at y=1500.
func (r *CaptionRenderer) Render(caption string) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))

	metrics := r.face.Metrics()
	lineHeight := metrics.Height.Ceil()
	baseline := captionTop + metrics.Ascent.Ceil()
	boxLeft := (FrameWidth - captionBoxWidth) / 2

	for i, line := range r.Lines(caption) {
		x := boxLeft + (captionBoxWidth-r.width(line))/2
		y := baseline + i*lineHeight

		for dy := -captionStroke; dy <= captionStroke; dy++ {
			for dx := -captionStroke; dx <= captionStroke; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				r.drawString(dst, line, x+dx, y+dy, color.Black)
			}
		}
		r.drawString(dst, line, x, y, color.White)
	}

	return dst
}

func (r *CaptionRenderer) drawString(dst draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
