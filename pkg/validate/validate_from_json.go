package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Gunvolt24/dms_events/internal/ports"
)

// FromJSON — строгое декодирование JSON в T и валидация по схеме.
// Неизвестные поля и данные после объекта считаются ошибкой.
func FromJSON[T any](ctx context.Context, validator ports.SchemaValidator, raw []byte) (*T, error) {
	var payload T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrInvalidPayload, err)
	}
	// гарантируем отсутствие данных после объекта
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("%w: invalid json: trailing data", ErrInvalidPayload)
	}
	if err := validator.Validate(ctx, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FromMap — приводит уже декодированное тело сообщения (map) к T и валидирует по схеме.
// Лишние поля игнорируются: продюсеры могут добавлять поля раньше, чем обновится консьюмер.
func FromMap[T any](ctx context.Context, validator ports.SchemaValidator, value map[string]any) (*T, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: пустое тело сообщения", ErrInvalidPayload)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: re-encode: %v", ErrInvalidPayload, err)
	}
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validator.Validate(ctx, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
