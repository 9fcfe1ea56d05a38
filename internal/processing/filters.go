package processing

import (
	"math"

	"webcam-filters/internal/domain"
)

// dotMatrixPalette - пороги упорядоченного дизеринга, индекс (row*col) mod 16
var dotMatrixPalette = [16]int{
	0, 128, 32, 160,
	192, 64, 224, 96,
	48, 176, 16, 144,
	240, 112, 208, 80,
}

var (
	sobelGx = [9]int{-1, 0, 1, -2, 0, 2, -1, 0, 1}
	sobelGy = [9]int{-1, -2, -1, 0, 0, 0, 1, 2, 1}
)

// Grayscale заменяет каналы пикселя средним (R+G+B)/3 с отбрасыванием дробной части
func Grayscale(frame *domain.RgbFrame) {
	pix := frame.Pix
	for i := 0; i+2 < len(pix); i += 3 {
		g := byte((int(pix[i]) + int(pix[i+1]) + int(pix[i+2])) / 3)
		pix[i], pix[i+1], pix[i+2] = g, g, g
	}
}

// Sepia применяет матрицу сепии, каналы ограничиваются сверху 255
func Sepia(frame *domain.RgbFrame) {
	pix := frame.Pix
	for i := 0; i+2 < len(pix); i += 3 {
		r, g, b := float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])

		// Явные приведения запрещают слияние в FMA: результат должен совпадать побитно
		sr := float64(r*.393) + float64(g*.769) + float64(b*.189)
		sg := float64(r*.349) + float64(g*.686) + float64(b*.168)
		sb := float64(r*.272) + float64(g*.534) + float64(b*.131)

		pix[i] = byte(math.Min(sr, 255))
		pix[i+1] = byte(math.Min(sg, 255))
		pix[i+2] = byte(math.Min(sb, 255))
	}
}

// Reflect отражает кадр по горизонтали. Центральный столбец нечетной ширины не меняется
func Reflect(frame *domain.RgbFrame) {
	w, pix := frame.Width, frame.Pix
	for y := 0; y < frame.Height; y++ {
		row := y * w
		for x := 0; x < w/2; x++ {
			l := (row + x) * 3
			r := (row + w - 1 - x) * 3
			pix[l], pix[r] = pix[r], pix[l]
			pix[l+1], pix[r+1] = pix[r+1], pix[l+1]
			pix[l+2], pix[r+2] = pix[r+2], pix[l+2]
		}
	}
}

// DotMatrix выполняет упорядоченный дизеринг: каждый пиксель становится
// чисто белым, если его яркость выше порога палитры, иначе черным
func DotMatrix(frame *domain.RgbFrame) {
	pix := frame.Pix
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			i := (y*frame.Width + x) * 3
			sum := int(pix[i]) + int(pix[i+1]) + int(pix[i+2])
			// sum/3 не бывает ровно x.5, поэтому (sum+1)/3 совпадает с округлением
			gray := (sum + 1) / 3

			var v byte
			if gray > dotMatrixPalette[(y*x)%len(dotMatrixPalette)] {
				v = 255
			}
			pix[i], pix[i+1], pix[i+2] = v, v, v
		}
	}
}

// Blur - размытие окном 3x3 по снимку кадра
func Blur(frame *domain.RgbFrame) {
	blurWith(frame, snapshot(frame, nil))
}

// Edges - оператор Собеля по снимку кадра
func Edges(frame *domain.RgbFrame) {
	edgesWith(frame, snapshot(frame, nil))
}

// snapshot копирует пиксели кадра в buf, расширяя его при необходимости
func snapshot(frame *domain.RgbFrame, buf []byte) []byte {
	if cap(buf) < len(frame.Pix) {
		buf = make([]byte, len(frame.Pix))
	}
	buf = buf[:len(frame.Pix)]
	copy(buf, frame.Pix)
	return buf
}

// blurWith усредняет соседей, попадающих в кадр. Соседи за границей
// отсутствуют: делитель равен числу учтенных пикселей, а не 9.
func blurWith(frame *domain.RgbFrame, src []byte) {
	w, h, pix := frame.Width, frame.Height, frame.Pix
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sumR, sumG, sumB, count int
			for ny := y - 1; ny <= y+1; ny++ {
				if ny < 0 || ny >= h {
					continue
				}
				for nx := x - 1; nx <= x+1; nx++ {
					if nx < 0 || nx >= w {
						continue
					}
					j := (ny*w + nx) * 3
					sumR += int(src[j])
					sumG += int(src[j+1])
					sumB += int(src[j+2])
					count++
				}
			}
			i := (y*w + x) * 3
			pix[i] = roundDiv(sumR, count)
			pix[i+1] = roundDiv(sumG, count)
			pix[i+2] = roundDiv(sumB, count)
		}
	}
}

// edgesWith считает градиенты Gx/Gy по каждому каналу отдельно.
// Соседи за границей дают ноль в сумму, но позиция ядра все равно сдвигается.
func edgesWith(frame *domain.RgbFrame, src []byte) {
	w, h, pix := frame.Width, frame.Height, frame.Pix
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var gx, gy [3]int
			k := 0
			for ny := y - 1; ny <= y+1; ny++ {
				for nx := x - 1; nx <= x+1; nx++ {
					if ny >= 0 && ny < h && nx >= 0 && nx < w {
						j := (ny*w + nx) * 3
						for c := 0; c < 3; c++ {
							v := int(src[j+c])
							gx[c] += v * sobelGx[k]
							gy[c] += v * sobelGy[k]
						}
					}
					k++
				}
			}
			i := (y*w + x) * 3
			for c := 0; c < 3; c++ {
				pix[i+c] = magnitude(gx[c], gy[c])
			}
		}
	}
}

// roundDiv делит неотрицательную сумму с округлением к ближайшему (половина вверх)
func roundDiv(sum, count int) byte {
	return byte((2*sum + count) / (2 * count))
}

// magnitude возвращает round(sqrt(gx²+gy²)), ограниченное 255
func magnitude(gx, gy int) byte {
	m := math.Round(math.Sqrt(float64(gx*gx + gy*gy)))
	if m > 255 {
		return 255
	}
	return byte(m)
}
