package database

import "errors"

var (
	// ErrNotFound — запрошенная запись отсутствует
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition — переход статуса не разрешен из текущего состояния
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientFunds — списание увело бы баланс кошелька в минус
	ErrInsufficientFunds = errors.New("insufficient wallet funds")

	// ErrConcurrentModification — запись изменена параллельным запросом
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrValidation — некорректные входные данные
	ErrValidation = errors.New("validation error")
)
