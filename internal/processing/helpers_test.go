package processing

import (
	"math/rand"

	"webcam-filters/internal/domain"
)

// createTestFrame создает RGB кадр, заполненный функцией fill
func createTestFrame(width, height int, fill func(x, y int) (r, g, b byte)) *domain.RgbFrame {
	f := &domain.RgbFrame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = fill(x, y)
		}
	}
	return f
}

func uniformFrame(width, height int, r, g, b byte) *domain.RgbFrame {
	return createTestFrame(width, height, func(int, int) (byte, byte, byte) { return r, g, b })
}

func randomFrame(width, height int, seed int64) *domain.RgbFrame {
	rng := rand.New(rand.NewSource(seed))
	return createTestFrame(width, height, func(int, int) (byte, byte, byte) {
		return byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256))
	})
}

func randomYUYV(width, height int, seed int64) domain.RawFrame {
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, width*height*2)
	rng.Read(data)
	return domain.RawFrame{Width: width, Height: height, Data: data}
}

// pixel возвращает каналы пикселя (x, y)
func pixel(f *domain.RgbFrame, x, y int) [3]byte {
	i := f.Offset(x, y)
	return [3]byte{f.Pix[i], f.Pix[i+1], f.Pix[i+2]}
}
