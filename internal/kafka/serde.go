package kafka

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Сериализаторы и десериализаторы ключа/значения. Подменяются опциями консьюмера и продюсера.
type (
	KeyDeserializer   func(raw []byte) (any, error)
	ValueDeserializer func(raw []byte) (map[string]any, error)
	KeySerializer     func(key any) ([]byte, error)
	ValueSerializer   func(value map[string]any) ([]byte, error)
)

// UUIDKeyDeserializer — ключ как текстовый UUID; отсутствующий ключ → nil без ошибки.
func UUIDKeyDeserializer(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	id, err := uuid.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode key as uuid: %w", err)
	}
	return id, nil
}

// StringKeyDeserializer — ключ как есть (UTF-8 строка).
func StringKeyDeserializer(raw []byte) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return string(raw), nil
}

// JSONValueDeserializer — значение как JSON-объект. Пустое значение (tombstone) → nil.
func JSONValueDeserializer(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode value as json object: %w", err)
	}
	return out, nil
}

// StringKeySerializer — UTF-8 строкового представления ключа; nil остаётся nil.
func StringKeySerializer(key any) ([]byte, error) {
	switch k := key.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(k), nil
	case []byte:
		return k, nil
	case uuid.UUID:
		return []byte(k.String()), nil
	case fmt.Stringer:
		return []byte(k.String()), nil
	case int, int32, int64, uint, uint32, uint64:
		return []byte(fmt.Sprint(k)), nil
	default:
		return nil, fmt.Errorf("unsupported key type %T", key)
	}
}

// JSONValueSerializer — значение в JSON. nil-значение не отправляем.
func JSONValueSerializer(value map[string]any) ([]byte, error) {
	if value == nil {
		return nil, errors.New("value is nil")
	}
	return json.Marshal(value)
}
