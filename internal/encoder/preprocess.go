package encoder

import (
	"bytes"
	"image"

	// Decoders for the formats a curator's collection realistically contains.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/hyperjump/curio/internal/models"
)

// CLIP visual input geometry and per-channel normalization constants.
const clipImageSize = 224

var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// preprocessImage decodes raw image bytes and converts them to the CHW float32
// tensor layout the visual tower expects: bilinear resize to 224x224, scale to
// [0,1], then per-channel normalization.
func preprocessImage(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, &EncodingError{Kind: models.QueryImage, Reason: "empty image data"}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &EncodingError{Kind: models.QueryImage, Reason: "undecodable image", Err: err}
	}
	return imageToTensor(img), nil
}

func imageToTensor(img image.Image) []float32 {
	bounds := img.Bounds()
	srcW := float64(bounds.Dx())
	srcH := float64(bounds.Dy())
	out := make([]float32, 3*clipImageSize*clipImageSize)
	plane := clipImageSize * clipImageSize

	for y := 0; y < clipImageSize; y++ {
		for x := 0; x < clipImageSize; x++ {
			r, g, b := bilinearSample(img,
				float64(bounds.Min.X)+(float64(x)+0.5)*srcW/clipImageSize-0.5,
				float64(bounds.Min.Y)+(float64(y)+0.5)*srcH/clipImageSize-0.5)
			i := y*clipImageSize + x
			out[i] = (r - clipMean[0]) / clipStd[0]
			out[plane+i] = (g - clipMean[1]) / clipStd[1]
			out[2*plane+i] = (b - clipMean[2]) / clipStd[2]
		}
	}
	return out
}

// bilinearSample returns the interpolated RGB value at (fx, fy) in [0,1] range.
func bilinearSample(img image.Image, fx, fy float64) (r, g, b float32) {
	bounds := img.Bounds()
	x0 := int(fx)
	y0 := int(fy)
	dx := float32(fx - float64(x0))
	dy := float32(fy - float64(y0))

	r00, g00, b00 := pixelAt(img, x0, y0, bounds)
	r10, g10, b10 := pixelAt(img, x0+1, y0, bounds)
	r01, g01, b01 := pixelAt(img, x0, y0+1, bounds)
	r11, g11, b11 := pixelAt(img, x0+1, y0+1, bounds)

	r = lerp(lerp(r00, r10, dx), lerp(r01, r11, dx), dy)
	g = lerp(lerp(g00, g10, dx), lerp(g01, g11, dx), dy)
	b = lerp(lerp(b00, b10, dx), lerp(b01, b11, dx), dy)
	return r, g, b
}

func pixelAt(img image.Image, x, y int, bounds image.Rectangle) (float32, float32, float32) {
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	if x >= bounds.Max.X {
		x = bounds.Max.X - 1
	}
	if y < bounds.Min.Y {
		y = bounds.Min.Y
	}
	if y >= bounds.Max.Y {
		y = bounds.Max.Y - 1
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return float32(r) / 65535, float32(g) / 65535, float32(b) / 65535
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
