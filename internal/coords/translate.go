// internal/coords/translate.go
package coords

import (
	"math"

	"github.com/TechNavii/computer-use-demo/api/schemas"
)

// NormMax is the upper bound of the reasoning service's normalized action
// space on each axis. The Gemini Computer Use tool predicts coordinates in
// 0..1000 regardless of the actual viewport size.
const NormMax = 1000.0

// Point is a coordinate pair in either space; the functions below document
// which space they expect.
type Point struct {
	X float64
	Y float64
}

// ToPixel converts a normalized point into viewport pixel coordinates using
// linear scaling. Out-of-range input is clamped to the normalized bounds so
// a prediction at the edge of the action space still resolves to a valid
// target. Results are rounded half away from zero (math.Round); applied
// consistently, ToNormalized(ToPixel(p)) recovers p within one pixel.
// Fails with InvalidGeometry when the viewport is degenerate.
func ToPixel(n Point, vp schemas.Viewport) (Point, error) {
	if err := validate(vp); err != nil {
		return Point{}, err
	}
	return Point{
		X: scaleToPixel(n.X, vp.Width),
		Y: scaleToPixel(n.Y, vp.Height),
	}, nil
}

// ToNormalized converts viewport pixel coordinates back into the normalized
// action space. Pixel input is clamped to [0, dim-1] before scaling. Uses
// the same rounding rule as ToPixel.
func ToNormalized(px Point, vp schemas.Viewport) (Point, error) {
	if err := validate(vp); err != nil {
		return Point{}, err
	}
	return Point{
		X: scaleToNormalized(px.X, vp.Width),
		Y: scaleToNormalized(px.Y, vp.Height),
	}, nil
}

// TranslateAction returns a copy of the action with every coordinate-bearing
// field rewritten from the normalized space into integral pixel values for
// the given viewport. Actions without coordinates pass through unchanged.
func TranslateAction(a schemas.Action, vp schemas.Viewport) (schemas.Action, error) {
	if !a.HasCoordinates() {
		return a, nil
	}
	if err := validate(vp); err != nil {
		return schemas.Action{}, err
	}

	out := a
	out.X = scaleToPixel(a.X, vp.Width)
	out.Y = scaleToPixel(a.Y, vp.Height)

	switch a.Kind {
	case schemas.ActionDrag:
		out.ToX = scaleToPixel(a.ToX, vp.Width)
		out.ToY = scaleToPixel(a.ToY, vp.Height)
	case schemas.ActionScroll:
		// Deltas are displacements, not points: scale without clamping so a
		// full-page scroll request keeps its magnitude and sign.
		out.DeltaX = math.Round(a.DeltaX / NormMax * float64(vp.Width))
		out.DeltaY = math.Round(a.DeltaY / NormMax * float64(vp.Height))
	}
	return out, nil
}

func validate(vp schemas.Viewport) error {
	if vp.Width <= 0 || vp.Height <= 0 {
		return schemas.Errorf(schemas.ErrInvalidGeometry,
			"viewport must have positive dimensions, got %dx%d", vp.Width, vp.Height)
	}
	return nil
}

func scaleToPixel(v float64, dim int) float64 {
	clamped := math.Max(0, math.Min(NormMax, v))
	px := math.Round(clamped / NormMax * float64(dim))
	// Clamp to the addressable pixel range [0, dim-1].
	return math.Min(px, float64(dim-1))
}

func scaleToNormalized(v float64, dim int) float64 {
	clamped := math.Max(0, math.Min(float64(dim-1), v))
	return math.Round(clamped / float64(dim) * NormMax)
}
