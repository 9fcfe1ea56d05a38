// Package processing реализует преобразование YUYV в RGB и фильтры кадров.
//
// Все функции работают с плотными буферами RGB24 (3 байта на пиксель,
// построчно, без выравнивания) и не знают, откуда пришел кадр и куда уйдет.
package processing

import (
	"fmt"
	"math"

	"webcam-filters/internal/domain"
)

// DefaultMaxFrameBytes - верхняя граница размера одного RGB кадра
const DefaultMaxFrameBytes = 256 << 20

// NewRgbFrame выделяет кадр RGB24 заданного размера.
// Слишком большой или переполняющий int размер возвращается как ошибка выделения.
func NewRgbFrame(width, height int) (*domain.RgbFrame, error) {
	return newRgbFrameLimit(width, height, DefaultMaxFrameBytes)
}

func newRgbFrameLimit(width, height, limit int) (*domain.RgbFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, &domain.ContractViolation{
			What: "размеры RGB кадра",
			Want: "> 0",
			Got:  fmt.Sprintf("%dx%d", width, height),
		}
	}
	if width > math.MaxInt/domain.RgbBytesPerPixel/height {
		return nil, &domain.AllocationError{Bytes: -1, Reason: fmt.Sprintf("переполнение размера %dx%d", width, height)}
	}
	size := domain.RgbFrameSize(width, height)
	if size > limit {
		return nil, &domain.AllocationError{Bytes: size, Reason: fmt.Sprintf("превышен лимит %d байт", limit)}
	}
	return &domain.RgbFrame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, size),
	}, nil
}

// Convert преобразует YUYV кадр в новый RGB кадр
func Convert(raw domain.RawFrame) (*domain.RgbFrame, error) {
	dst, err := NewRgbFrame(raw.Width, raw.Height)
	if err != nil {
		return nil, err
	}
	if err := ConvertInto(dst, raw); err != nil {
		return nil, err
	}
	return dst, nil
}

// ConvertInto преобразует YUYV кадр в существующий RGB кадр.
//
// За итерацию обрабатываются 4 байта источника (Y0 U Y1 V) и записываются
// 6 байт результата. Арифметика BT.601 с фиксированной точкой:
//
//	R = (298*y + 409*v + 128) >> 8
//	G = (298*y - 100*u - 208*v + 128) >> 8
//	B = (298*y + 516*u + 128) >> 8
//
// где y = Y-16, u = U-128, v = V-128; каждый канал ограничивается [0,255].
func ConvertInto(dst *domain.RgbFrame, raw domain.RawFrame) error {
	if err := checkConvertSizes(dst, raw); err != nil {
		return err
	}

	src := raw.Data
	pix := dst.Pix
	for i, j := 0, 0; i < len(src); i, j = i+4, j+6 {
		y0 := int(src[i]) - 16
		u := int(src[i+1]) - 128
		y1 := int(src[i+2]) - 16
		v := int(src[i+3]) - 128

		// Вклад цветности общий для пары пикселей
		rv := 409*v + 128
		guv := -100*u - 208*v + 128
		bu := 516*u + 128

		c0 := 298 * y0
		pix[j] = clampByte((c0 + rv) >> 8)
		pix[j+1] = clampByte((c0 + guv) >> 8)
		pix[j+2] = clampByte((c0 + bu) >> 8)

		c1 := 298 * y1
		pix[j+3] = clampByte((c1 + rv) >> 8)
		pix[j+4] = clampByte((c1 + guv) >> 8)
		pix[j+5] = clampByte((c1 + bu) >> 8)
	}
	return nil
}

func checkConvertSizes(dst *domain.RgbFrame, raw domain.RawFrame) error {
	if raw.Width <= 0 || raw.Height <= 0 || (raw.Width*raw.Height)%2 != 0 {
		return &domain.ContractViolation{
			What: "размеры YUYV кадра",
			Want: "положительные, четное число пикселей",
			Got:  fmt.Sprintf("%dx%d", raw.Width, raw.Height),
		}
	}
	if want := domain.RawFrameSize(raw.Width, raw.Height); len(raw.Data) != want {
		return &domain.ContractViolation{
			What: "длина YUYV буфера",
			Want: fmt.Sprint(want),
			Got:  fmt.Sprint(len(raw.Data)),
		}
	}
	if dst == nil || dst.Width != raw.Width || dst.Height != raw.Height {
		return &domain.ContractViolation{What: "размеры RGB кадра", Want: fmt.Sprintf("%dx%d", raw.Width, raw.Height), Got: frameDims(dst)}
	}
	if want := domain.RgbFrameSize(raw.Width, raw.Height); len(dst.Pix) != want {
		return &domain.ContractViolation{
			What: "длина RGB буфера",
			Want: fmt.Sprint(want),
			Got:  fmt.Sprint(len(dst.Pix)),
		}
	}
	return nil
}

func frameDims(f *domain.RgbFrame) string {
	if f == nil {
		return "nil"
	}
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// clampByte ограничивает значение диапазоном [0,255]
func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
