// internal/coords/translate_test.go
package coords_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/coords"
)

func TestToPixel(t *testing.T) {
	vp := schemas.Viewport{Width: 1440, Height: 900}

	testCases := []struct {
		name     string
		in       coords.Point
		expected coords.Point
	}{
		{"origin", coords.Point{X: 0, Y: 0}, coords.Point{X: 0, Y: 0}},
		{"center", coords.Point{X: 500, Y: 500}, coords.Point{X: 720, Y: 450}},
		{"far edge clamps to addressable pixel", coords.Point{X: 1000, Y: 1000}, coords.Point{X: 1439, Y: 899}},
		{"out of range clamps low", coords.Point{X: -50, Y: -1}, coords.Point{X: 0, Y: 0}},
		{"out of range clamps high", coords.Point{X: 1500, Y: 2000}, coords.Point{X: 1439, Y: 899}},
		{"rounds half away from zero", coords.Point{X: 1, Y: 1}, coords.Point{X: 1, Y: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := coords.ToPixel(tc.in, vp)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestToPixelInvalidGeometry(t *testing.T) {
	for _, vp := range []schemas.Viewport{
		{Width: 0, Height: 900},
		{Width: 1440, Height: 0},
		{Width: -1, Height: -1},
	} {
		_, err := coords.ToPixel(coords.Point{X: 500, Y: 500}, vp)
		require.Error(t, err)
		assert.Equal(t, schemas.ErrInvalidGeometry, schemas.KindOf(err))
	}
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	vp := schemas.Viewport{Width: 1440, Height: 900}

	for _, n := range []float64{0, 1, 250, 333, 500, 707, 999, 1000} {
		px, err := coords.ToPixel(coords.Point{X: n, Y: n}, vp)
		require.NoError(t, err)

		back, err := coords.ToNormalized(px, vp)
		require.NoError(t, err)

		// One pixel of the larger axis covers NormMax/dim normalized units.
		tolX := math.Ceil(coords.NormMax / float64(vp.Width))
		tolY := math.Ceil(coords.NormMax / float64(vp.Height))
		assert.InDelta(t, n, back.X, tolX, "x for normalized %v", n)
		assert.InDelta(t, n, back.Y, tolY, "y for normalized %v", n)
	}
}

func TestTranslateAction(t *testing.T) {
	vp := schemas.Viewport{Width: 1000, Height: 800}

	t.Run("click maps both axes", func(t *testing.T) {
		in := schemas.Action{Kind: schemas.ActionClick, X: 500, Y: 500}
		out, err := coords.TranslateAction(in, vp)
		require.NoError(t, err)
		assert.Equal(t, 500.0, out.X)
		assert.Equal(t, 400.0, out.Y)
	})

	t.Run("drag maps destination too", func(t *testing.T) {
		in := schemas.Action{Kind: schemas.ActionDrag, X: 100, Y: 200, ToX: 900, ToY: 800}
		out, err := coords.TranslateAction(in, vp)
		require.NoError(t, err)
		assert.Equal(t, 100.0, out.X)
		assert.Equal(t, 160.0, out.Y)
		assert.Equal(t, 900.0, out.ToX)
		assert.Equal(t, 640.0, out.ToY)
	})

	t.Run("scroll deltas keep sign and are not clamped", func(t *testing.T) {
		in := schemas.Action{Kind: schemas.ActionScroll, X: 500, Y: 500, DeltaX: 0, DeltaY: -800}
		out, err := coords.TranslateAction(in, vp)
		require.NoError(t, err)
		assert.Equal(t, 0.0, out.DeltaX)
		assert.Equal(t, -640.0, out.DeltaY)
	})

	t.Run("actions without coordinates pass through", func(t *testing.T) {
		in := schemas.Action{Kind: schemas.ActionNavigate, URL: "https://example.com"}
		out, err := coords.TranslateAction(in, vp)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("degenerate viewport fails", func(t *testing.T) {
		in := schemas.Action{Kind: schemas.ActionClick, X: 500, Y: 500}
		_, err := coords.TranslateAction(in, schemas.Viewport{})
		require.Error(t, err)
		assert.Equal(t, schemas.ErrInvalidGeometry, schemas.KindOf(err))
	})
}
