package detector

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/segment"

	"github.com/MeKo-Tech/barscan/internal/mempool"
)

// fastBlurRadius gives bild a 15-tap Gaussian kernel.
const fastBlurRadius = 7

// DefaultThreshold is the global binarization level, about 75% of 255.
// Samples strictly above it count as light.
const DefaultThreshold uint8 = 191

// binarize returns the foreground mask of r: true where the (optionally
// blurred) sample is strictly above threshold. Light pixels are the
// foreground of contour extraction, so barcode modules end up as holes.
// The mask comes from mempool; callers return it with mempool.PutBool.
func binarize(r Raster, threshold uint8, fast bool) []bool {
	mask := mempool.GetBool(r.Width * r.Height)
	if threshold == 0xff {
		return mask
	}
	var src image.Image = r.Gray()
	if fast {
		src = blur.Gaussian(src, fastBlurRadius)
	}
	bw := segment.Threshold(src, threshold+1)
	for y := range r.Height {
		row := bw.Pix[y*bw.Stride : y*bw.Stride+r.Width]
		for x, v := range row {
			mask[y*r.Width+x] = v != 0
		}
	}
	return mask
}
