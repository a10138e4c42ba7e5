package mfa

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/boombuler/barcode/qr"
)

// quietZone is the border of blank modules around the QR symbol required by
// scanners.
const quietZone = 4

// QRCodeSVG renders the given content (a provisioning URI) as a scalable SVG
// QR code, dark modules on a white background.
func QRCodeSVG(content string) (string, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}

	bounds := code.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	size := w + 2*quietZone

	var b strings.Builder
	fmt.Fprintf(&b,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		size, h+2*quietZone)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, size, h+2*quietZone)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		// Merge horizontal runs of dark modules into single rects to keep
		// the document small.
		runStart := -1
		for x := bounds.Min.X; x <= bounds.Max.X; x++ {
			dark := x < bounds.Max.X && isDark(code.At(x, y))
			switch {
			case dark && runStart < 0:
				runStart = x
			case !dark && runStart >= 0:
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="1" fill="#000000"/>`,
					runStart-bounds.Min.X+quietZone, y-bounds.Min.Y+quietZone, x-runStart)
				runStart = -1
			}
		}
	}

	b.WriteString(`</svg>`)
	return b.String(), nil
}

func isDark(c color.Color) bool {
	r, g, bb, _ := c.RGBA()
	return r == 0 && g == 0 && bb == 0
}
