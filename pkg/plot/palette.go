package plot

import "image/color"

// ROOT base colour indices.
const (
	White = iota
	Black
	Red
	Green
	Blue
	Yellow
	Magenta
	Cyan

	// FirstCurveColor is the colour of the first ROC curve; white and black
	// are skipped.
	FirstCurveColor = Red
)

var rootColors = []color.NRGBA{
	{R: 255, G: 255, B: 255, A: 255},
	{R: 0, G: 0, B: 0, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 89, G: 212, B: 84, A: 255},
	{R: 89, G: 84, B: 217, A: 255},
}

// Color returns the ROOT base colour for index i. Indices past the base
// palette wrap around, skipping white and black.
func Color(i int) color.Color {
	if i < 0 {
		i = -i
	}
	if i >= len(rootColors) {
		i = FirstCurveColor + (i-FirstCurveColor)%(len(rootColors)-FirstCurveColor)
	}
	return rootColors[i]
}

// CurveColorIndex returns the colour index of the n-th curve of an overlay.
func CurveColorIndex(n int) int {
	return n + FirstCurveColor
}
