package processing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-filters/internal/domain"
)

func TestConvert_ZeroPoint(t *testing.T) {
	// Черный без цветности: Y=16, U=V=128
	raw := domain.RawFrame{Width: 2, Height: 1, Data: []byte{16, 128, 16, 128}}

	rgb, err := Convert(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0}, rgb.Pix)
}

func TestConvert_KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		yuyv []byte
		want []byte
	}{
		{
			name: "white",
			yuyv: []byte{235, 128, 235, 128},
			want: []byte{255, 255, 255, 255, 255, 255},
		},
		{
			// y=65 u=-38 v=112: R=65306>>8=255, G=2>>8=0, B=-110>>8=-1 -> 0
			name: "saturated red",
			yuyv: []byte{81, 90, 81, 240},
			want: []byte{255, 0, 0, 255, 0, 0},
		},
		{
			// Пара пикселей с разной яркостью и общей цветностью
			name: "shared chroma",
			yuyv: []byte{16, 128, 126, 128},
			want: []byte{0, 0, 0, 128, 128, 128},
		},
		{
			// Ниже черного: отрицательный результат ограничивается нулем
			name: "below black clamps",
			yuyv: []byte{0, 128, 0, 128},
			want: []byte{0, 0, 0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rgb, err := Convert(domain.RawFrame{Width: 2, Height: 1, Data: tt.yuyv})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rgb.Pix)
		})
	}
}

func TestConvert_OutputSize(t *testing.T) {
	sizes := [][2]int{{2, 1}, {4, 4}, {16, 9}, {640, 360}, {2, 7}}

	for i, sz := range sizes {
		w, h := sz[0], sz[1]
		t.Run(fmt.Sprintf("%dx%d", w, h), func(t *testing.T) {
			rgb, err := Convert(randomYUYV(w, h, int64(i)))
			require.NoError(t, err)
			assert.Len(t, rgb.Pix, 3*w*h)
			assert.Equal(t, w, rgb.Width)
			assert.Equal(t, h, rgb.Height)
		})
	}
}

func TestConvertInto_ReusesBuffer(t *testing.T) {
	raw := randomYUYV(8, 4, 7)

	fresh, err := Convert(raw)
	require.NoError(t, err)

	dst, err := NewRgbFrame(8, 4)
	require.NoError(t, err)
	for i := range dst.Pix {
		dst.Pix[i] = 0xAA
	}
	require.NoError(t, ConvertInto(dst, raw))
	assert.Equal(t, fresh.Pix, dst.Pix)
}

func TestConvert_ContractViolation(t *testing.T) {
	tests := []struct {
		name string
		raw  domain.RawFrame
	}{
		{"short buffer", domain.RawFrame{Width: 2, Height: 2, Data: make([]byte, 7)}},
		{"long buffer", domain.RawFrame{Width: 2, Height: 2, Data: make([]byte, 9)}},
		{"odd pixel count", domain.RawFrame{Width: 3, Height: 1, Data: make([]byte, 6)}},
		{"zero size", domain.RawFrame{Width: 0, Height: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrContractViolation)
		})
	}
}

func TestConvertInto_DestinationMismatch(t *testing.T) {
	raw := randomYUYV(4, 2, 1)
	dst, err := NewRgbFrame(2, 2)
	require.NoError(t, err)

	err = ConvertInto(dst, raw)
	assert.ErrorIs(t, err, domain.ErrContractViolation)
}

func TestNewRgbFrame_AllocationFailure(t *testing.T) {
	_, err := NewRgbFrame(1<<16, 1<<16)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllocation)

	var allocErr *domain.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.NotZero(t, allocErr.Bytes)
}

func BenchmarkConvert(b *testing.B) {
	raw := randomYUYV(640, 360, 1)
	dst, err := NewRgbFrame(640, 360)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ConvertInto(dst, raw); err != nil {
			b.Fatal(err)
		}
	}
}
