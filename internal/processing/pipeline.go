package processing

import "webcam-filters/internal/domain"

// stage - шаг конвейера фильтров
type stage struct {
	kind  domain.FilterKind
	apply func(p *Pipeline, frame *domain.RgbFrame)
}

// stages задает фиксированный порядок применения, не зависящий от маски.
// Фильтры не коммутативны, порядок - часть контракта.
var stages = [...]stage{
	{domain.FilterBlur, func(p *Pipeline, f *domain.RgbFrame) { blurWith(f, p.snapshot(f)) }},
	{domain.FilterSepia, func(_ *Pipeline, f *domain.RgbFrame) { Sepia(f) }},
	{domain.FilterEdges, func(p *Pipeline, f *domain.RgbFrame) { edgesWith(f, p.snapshot(f)) }},
	{domain.FilterGrayscale, func(_ *Pipeline, f *domain.RgbFrame) { Grayscale(f) }},
	{domain.FilterReflect, func(_ *Pipeline, f *domain.RgbFrame) { Reflect(f) }},
	{domain.FilterDotMatrix, func(_ *Pipeline, f *domain.RgbFrame) { DotMatrix(f) }},
}

// Order возвращает порядок применения фильтров
func Order() []domain.FilterKind {
	out := make([]domain.FilterKind, len(stages))
	for i, s := range stages {
		out[i] = s.kind
	}
	return out
}

// Pipeline применяет включенные фильтры к кадру на месте.
// Снимок для blur/edges хранится в переиспользуемом буфере, поэтому
// Pipeline не безопасен для одновременного использования из нескольких горутин.
type Pipeline struct {
	scratch []byte
}

// NewPipeline создает конвейер фильтров
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Apply применяет фильтры из маски строго в порядке
// blur -> sepia -> edges -> grayscale -> reflect -> dot matrix.
// Каждый шаг получает результат предыдущего. Пустая маска оставляет кадр без изменений.
func (p *Pipeline) Apply(mask domain.FilterMask, frame *domain.RgbFrame) {
	if frame == nil || len(frame.Pix) != domain.RgbFrameSize(frame.Width, frame.Height) {
		return
	}
	for _, s := range stages {
		if mask.Enabled(s.kind) {
			s.apply(p, frame)
		}
	}
}

// ScratchSize возвращает емкость буфера снимка
func (p *Pipeline) ScratchSize() int {
	return cap(p.scratch)
}

func (p *Pipeline) snapshot(frame *domain.RgbFrame) []byte {
	p.scratch = snapshot(frame, p.scratch)
	return p.scratch
}
