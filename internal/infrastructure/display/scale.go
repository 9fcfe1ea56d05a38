package display

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"webcam-filters/internal/domain"
)

// DefaultScale - окно отображения вдвое больше кадра захвата
const DefaultScale = 2

// frameEncoder переводит RGB кадр в увеличенный JPEG, переиспользуя буферы.
// Не безопасен для одновременного использования.
type frameEncoder struct {
	scale   int
	quality int
	src     *image.RGBA
	dst     *image.RGBA
	buf     bytes.Buffer
}

func newFrameEncoder(scale, quality int) *frameEncoder {
	if scale < 1 {
		scale = DefaultScale
	}
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &frameEncoder{scale: scale, quality: quality}
}

// Scale копирует кадр в RGBA и увеличивает его в scale раз ближайшим соседом
func Scale(frame *domain.RgbFrame, scale int) *image.RGBA {
	return newFrameEncoder(scale, 0).scaled(frame)
}

func (e *frameEncoder) scaled(frame *domain.RgbFrame) *image.RGBA {
	srcRect := image.Rect(0, 0, frame.Width, frame.Height)
	if e.src == nil || e.src.Rect != srcRect {
		e.src = image.NewRGBA(srcRect)
	}
	for i, j := 0, 0; i+2 < len(frame.Pix); i, j = i+3, j+4 {
		e.src.Pix[j] = frame.Pix[i]
		e.src.Pix[j+1] = frame.Pix[i+1]
		e.src.Pix[j+2] = frame.Pix[i+2]
		e.src.Pix[j+3] = 0xff
	}
	if e.scale == 1 {
		return e.src
	}

	dstRect := image.Rect(0, 0, frame.Width*e.scale, frame.Height*e.scale)
	if e.dst == nil || e.dst.Rect != dstRect {
		e.dst = image.NewRGBA(dstRect)
	}
	draw.NearestNeighbor.Scale(e.dst, dstRect, e.src, srcRect, draw.Src, nil)
	return e.dst
}

// encode возвращает JPEG кадра. Результат - новая копия, кадр после возврата не читается
func (e *frameEncoder) encode(frame *domain.RgbFrame) ([]byte, error) {
	img := e.scaled(frame)
	e.buf.Reset()
	if err := jpeg.Encode(&e.buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, err
	}
	return append([]byte(nil), e.buf.Bytes()...), nil
}
