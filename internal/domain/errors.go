package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Сигнальные ошибки для классификации через errors.Is
var (
	// ErrDriverIO - ошибка драйвера при получении/возврате сегмента или управлении потоком
	ErrDriverIO = errors.New("ошибка ввода-вывода драйвера")

	// ErrAllocation - не удалось выделить буфер кадра
	ErrAllocation = errors.New("ошибка выделения памяти")

	// ErrContractViolation - некорректные размеры буферов, ошибка интеграции
	ErrContractViolation = errors.New("нарушение контракта")
)

// Ошибки владения сегментами
var (
	// ErrSegmentReleased - чтение сегмента после его возврата драйверу
	ErrSegmentReleased = errors.New("сегмент уже возвращен драйверу")

	// ErrPoolExhausted - все сегменты удерживаются приложением
	ErrPoolExhausted = errors.New("все сегменты удерживаются приложением")
)

// Ошибки жизненного цикла сессии
var (
	// ErrInvalidTransition - недопустимый переход состояния
	ErrInvalidTransition = errors.New("недопустимый переход состояния")

	// ErrSessionStopped - сессия уже остановлена
	ErrSessionStopped = errors.New("сессия остановлена")
)

// DriverIOError описывает сбой операции драйвера
type DriverIOError struct {
	Op    string // queue, dequeue, stream-on, stream-off, close
	Index int    // Индекс сегмента или -1
	Err   error
}

func (e *DriverIOError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("драйвер: %s [сегмент %d]: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("драйвер: %s: %v", e.Op, e.Err)
}

// Unwrap возвращает исходную ошибку
func (e *DriverIOError) Unwrap() error { return e.Err }

// Is позволяет сравнивать с ErrDriverIO
func (e *DriverIOError) Is(target error) bool { return target == ErrDriverIO }

// NewDriverIOError оборачивает ошибку драйвера
func NewDriverIOError(op string, index int, err error) error {
	if err == nil {
		return nil
	}
	return &DriverIOError{Op: op, Index: index, Err: err}
}

// AllocationError описывает невозможность выделить буфер
type AllocationError struct {
	Bytes  int
	Reason string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("не удалось выделить %d байт: %s", e.Bytes, e.Reason)
}

// Is позволяет сравнивать с ErrAllocation
func (e *AllocationError) Is(target error) bool { return target == ErrAllocation }

// ContractViolation описывает несоответствие размеров буферов
type ContractViolation struct {
	What string
	Want string
	Got  string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("нарушение контракта: %s: ожидалось %s, получено %s", e.What, e.Want, e.Got)
}

// Is позволяет сравнивать с ErrContractViolation
func (e *ContractViolation) Is(target error) bool { return target == ErrContractViolation }

func itoa(n int) string { return strconv.Itoa(n) }

func sizeString(w, h int) string { return fmt.Sprintf("%dx%d", w, h) }
