package domain

import "time"

// Envelope — нормализованное представление одного сообщения из брокера.
// Создаётся один раз на результат poll и после этого не меняется.
type Envelope struct {
	Key       any            // декодированный ключ (по умолчанию uuid.UUID или nil)
	Value     map[string]any // декодированное тело (по умолчанию JSON-объект)
	Topic     string
	Partition int
	Offset    int64

	RawKey        []byte
	RawValue      []byte
	Headers       map[string]string
	Time          time.Time
	HighWaterMark int64

	// DecodeErr — ошибка десериализации ключа/значения. Сообщение всё равно
	// доходит до обработчика, а ошибка превращается в ValidationError.
	DecodeErr error
}

// Coordinates — координаты сообщения для логов и алертов.
func (e Envelope) Coordinates() Coordinates {
	return Coordinates{Topic: e.Topic, Partition: e.Partition, Offset: e.Offset, Key: KeyString(e.Key)}
}

// AtPartitionEnd — сообщение последнее из доступных в партиции на момент чтения.
func (e Envelope) AtPartitionEnd() bool {
	return e.HighWaterMark > 0 && e.Offset+1 >= e.HighWaterMark
}

// Coordinates — topic/partition/offset/key одного сообщения.
type Coordinates struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
	Key       string `json:"key,omitempty"`
}

// Fields — плоский список ключ/значение для структурного логгера.
func (c Coordinates) Fields() []any {
	return []any{"topic", c.Topic, "partition", c.Partition, "offset", c.Offset, "key", c.Key}
}

// KeyString — строковое представление ключа (nil → пустая строка).
func KeyString(key any) string {
	switch k := key.(type) {
	case nil:
		return ""
	case string:
		return k
	case []byte:
		return string(k)
	case interface{ String() string }:
		return k.String()
	default:
		return ""
	}
}
