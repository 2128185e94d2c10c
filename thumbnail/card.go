package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	cardBackground = color.RGBA{0xf4, 0xf4, 0xf5, 0xff}
	pageFill       = color.White
	pageOutline    = color.RGBA{0x9c, 0xa3, 0xaf, 0xff}
	textColor      = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	mutedColor     = color.RGBA{0x6b, 0x72, 0x80, 0xff}
)

const (
	cardPadding = 8
	lineHeight  = 15 // basicfont.Face7x13 plus leading
)

// card draws the page outline at the first page's aspect ratio above the
// file name, its size and its position.
func card(t *Thumbnail, width int) ([]byte, error) {
	face := basicfont.Face7x13
	inner := width - 2*cardPadding
	if inner < 1 {
		return nil, fmt.Errorf("card width %d is too small", width)
	}
	lines := []string{fit(t.Name, inner, face.Advance), fmt.Sprintf("%.2f MB", t.SizeMB)}
	if t.Position > 0 {
		lines = append(lines, fmt.Sprintf("File #%d", t.Position))
	}

	area := inner * 4 / 3
	height := cardPadding + area + cardPadding + len(lines)*lineHeight + cardPadding
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(cardBackground), image.Point{}, draw.Src)

	// Fit the page into the preview area, centered.
	pw, ph := float64(inner), float64(inner)*t.Height/t.Width
	if ph > float64(area) {
		pw, ph = float64(area)*t.Width/t.Height, float64(area)
	}
	x0 := cardPadding + (inner-int(pw))/2
	y0 := cardPadding + (area-int(ph))/2
	page := image.Rect(x0, y0, x0+max(1, int(pw)), y0+max(1, int(ph)))
	draw.Draw(img, page, image.NewUniform(pageFill), image.Point{}, draw.Src)
	outline(img, page, pageOutline)

	d := &font.Drawer{Dst: img, Face: face}
	y := cardPadding + area + cardPadding
	for i, line := range lines {
		d.Src = image.NewUniform(textColor)
		if i > 0 {
			d.Src = image.NewUniform(mutedColor)
		}
		y += lineHeight
		d.Dot = fixed.P(cardPadding, y-3)
		d.DrawString(line)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func outline(img draw.Image, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(img, edge, src, image.Point{}, draw.Src)
	}
}

// fit shortens s with a trailing "..." so it is at most width pixels wide
// in a fixed-advance face.
func fit(s string, width, advance int) string {
	n := width / advance
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:max(0, n)])
	}
	return string(r[:n-3]) + "..."
}
