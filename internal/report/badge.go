// internal/report/badge.go
package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mrsinham/quantreport/internal/catalog"
)

// badgePalette colors badges by segment number so the same segment keeps
// its color across renders.
var badgePalette = []color.RGBA{
	{30, 92, 141, 255},  // blue
	{141, 57, 30, 255},  // rust
	{42, 110, 54, 255},  // green
	{104, 45, 128, 255}, // purple
	{140, 104, 16, 255}, // ochre
}

const (
	badgeScale   = 2
	badgePadding = 8
)

// RenderBadge renders a PNG badge naming one segment and its selected
// characteristics, for embedding into an HTML report.
func RenderBadge(segment int, label string, entry Entry) ([]byte, error) {
	text := badgeText(segment, label, entry)

	// Render at base size, then scale up for readability.
	face := basicfont.Face7x13
	baseWidth := font.MeasureString(face, text).Ceil()
	baseHeight := face.Height

	textImg := image.NewRGBA(image.Rect(0, 0, baseWidth, baseHeight))
	drawer := &font.Drawer{
		Dst:  textImg,
		Src:  image.NewUniform(color.RGBA{255, 255, 255, 255}),
		Face: face,
		Dot:  fixed.Point26_6{Y: fixed.I(face.Ascent)},
	}
	drawer.DrawString(text)

	scaledWidth := baseWidth * badgeScale
	scaledHeight := baseHeight * badgeScale
	scaledTextImg := image.NewRGBA(image.Rect(0, 0, scaledWidth, scaledHeight))
	draw.BiLinear.Scale(scaledTextImg, scaledTextImg.Bounds(), textImg, textImg.Bounds(), draw.Over, nil)

	width := scaledWidth + 2*badgePadding
	height := scaledHeight + 2*badgePadding
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	bg := badgePalette[((segment%len(badgePalette))+len(badgePalette))%len(badgePalette)]
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(img, scaledTextImg.Bounds().Add(image.Pt(badgePadding, badgePadding)),
		scaledTextImg, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode badge: %w", err)
	}
	return buf.Bytes(), nil
}

// badgeText lines up the segment label with its selections, dropping
// characteristics left unset.
func badgeText(segment int, label string, entry Entry) string {
	if label == "" {
		label = fmt.Sprintf("Segment %d", segment)
	}

	concepts := make([]string, 0, len(entry))
	for concept := range entry {
		concepts = append(concepts, concept)
	}
	sort.Strings(concepts)

	var parts []string
	for _, concept := range concepts {
		choice := entry[concept]
		if choice == "" || choice == catalog.NoSelection {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", concept, choice))
	}
	if len(parts) == 0 {
		return label
	}
	return fmt.Sprintf("%s | %s", label, strings.Join(parts, ", "))
}
