package domain

import "strings"

// FilterKind - вид фильтра. Порядок констант совпадает с порядком применения
type FilterKind int

const (
	FilterBlur FilterKind = iota
	FilterSepia
	FilterEdges
	FilterGrayscale
	FilterReflect
	FilterDotMatrix

	filterKindCount
)

// FilterKinds возвращает все виды фильтров в порядке применения:
// blur -> sepia -> edges -> grayscale -> reflect -> dot matrix
func FilterKinds() []FilterKind {
	return []FilterKind{FilterBlur, FilterSepia, FilterEdges, FilterGrayscale, FilterReflect, FilterDotMatrix}
}

var filterNames = [filterKindCount]string{"blur", "sepia", "edges", "grayscale", "reflect", "dot_matrix"}

var filterKeys = [filterKindCount]rune{'b', 's', 'e', 'g', 'r', 'd'}

// String возвращает имя фильтра
func (k FilterKind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return filterNames[k]
}

// Key возвращает клавишу, переключающую фильтр
func (k FilterKind) Key() rune {
	if !k.Valid() {
		return 0
	}
	return filterKeys[k]
}

// Valid проверяет, что вид фильтра известен
func (k FilterKind) Valid() bool {
	return k >= 0 && k < filterKindCount
}

// FilterKindForKey сопоставляет клавишу виду фильтра
func FilterKindForKey(key rune) (FilterKind, bool) {
	for k, r := range filterKeys {
		if r == key {
			return FilterKind(k), true
		}
	}
	return 0, false
}

// FilterMask - набор включенных фильтров, по биту на вид
type FilterMask uint8

// Enabled сообщает, включен ли фильтр
func (m FilterMask) Enabled(k FilterKind) bool {
	if !k.Valid() {
		return false
	}
	return m&(1<<uint(k)) != 0
}

// Set включает или выключает фильтр
func (m FilterMask) Set(k FilterKind, on bool) FilterMask {
	if !k.Valid() {
		return m
	}
	if on {
		return m | 1<<uint(k)
	}
	return m &^ (1 << uint(k))
}

// Toggle переключает фильтр
func (m FilterMask) Toggle(k FilterKind) FilterMask {
	return m.Set(k, !m.Enabled(k))
}

// Kinds возвращает включенные фильтры в порядке применения
func (m FilterMask) Kinds() []FilterKind {
	var kinds []FilterKind
	for _, k := range FilterKinds() {
		if m.Enabled(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// String возвращает строку клавиш включенных фильтров, например "bg"
func (m FilterMask) String() string {
	var sb strings.Builder
	for _, k := range m.Kinds() {
		sb.WriteRune(k.Key())
	}
	return sb.String()
}

// ParseFilterMask разбирает строку клавиш ("bsg") в маску.
// Неизвестные символы возвращаются как нарушение контракта.
func ParseFilterMask(keys string) (FilterMask, error) {
	var m FilterMask
	for _, r := range strings.ToLower(strings.TrimSpace(keys)) {
		if r == ',' || r == ' ' {
			continue
		}
		k, ok := FilterKindForKey(r)
		if !ok {
			return 0, &ContractViolation{What: "клавиша фильтра", Want: "одна из bsegrd", Got: string(r)}
		}
		m = m.Set(k, true)
	}
	return m, nil
}
