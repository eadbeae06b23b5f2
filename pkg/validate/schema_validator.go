package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports"
	"github.com/go-playground/validator/v10"
)

// Проверка, что SchemaValidator удовлетворяет порту валидатора схемы.
var _ ports.SchemaValidator = (*SchemaValidator)(nil)

// ErrInvalidPayload — базовая (sentinel error) ошибка валидации схемы.
// Оборачивает domain.ErrValidation, чтобы ядро консьюмера классифицировало её единообразно.
var ErrInvalidPayload = fmt.Errorf("payload does not match schema: %w", domain.ErrValidation)

// SchemaValidator — проверка payload по struct-тегам `validate:"..."`.
type SchemaValidator struct {
	once sync.Once
	v    *validator.Validate
}

// NewSchemaValidator — конструктор SchemaValidator.
// Имена полей в ошибках берутся из json-тегов, как их видит отправитель события.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

func (s *SchemaValidator) engine() *validator.Validate {
	s.once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		s.v = v
	})
	return s.v
}

// Validate — проверяет payload; возвращает ErrInvalidPayload (с обёрнутой причиной) при любой проблеме.
func (s *SchemaValidator) Validate(_ context.Context, payload any) error {
	if payload == nil {
		return fmt.Errorf("%w: payload не может быть nil", ErrInvalidPayload)
	}
	err := s.engine().Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, describe(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(parts, "; "))
	}
	// InvalidValidationError: передали не структуру.
	return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
}

// describe — человекочитаемое описание нарушения одного правила.
func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " обязателен"
	case "email":
		return field + " некорректен"
	case "oneof":
		return fmt.Sprintf("%s должен быть одним из [%s]", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s длиннее %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s должен быть >= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s не прошёл правило %s", field, fe.Tag())
	}
}
