package domain

import "errors"

// Таксономия ошибок ядра обработки сообщений.
var (
	// ErrValidation — тело сообщения не соответствует схеме (или схема не задана).
	ErrValidation = errors.New("message validation failed")
	// ErrHandling — бизнес-логика обработчика вернула ошибку или упала с паникой.
	ErrHandling = errors.New("message handling failed")
	// ErrBroker — ошибка, о которой сообщил брокер/сеть.
	ErrBroker = errors.New("broker error")
	// ErrPartitionEOF — достигнут конец партиции; информационный сигнал, не сбой.
	ErrPartitionEOF = errors.New("partition eof")
	// ErrFatalConsumer — непредвиденная ошибка, цикл потребителя останавливается.
	ErrFatalConsumer = errors.New("fatal consumer error")
)

// IsRetryable — стоит ли повторять попытку с тем же сообщением.
// Ошибки валидации без изменения тела не исправятся, но решение
// о пропуске повторов принимает вызывающая сторона.
func IsRetryable(err error) bool {
	return err != nil && !errors.Is(err, ErrValidation)
}
