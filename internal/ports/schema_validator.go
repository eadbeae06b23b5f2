package ports

import "context"

// SchemaValidator — проверка уже декодированного payload на соответствие схеме.
type SchemaValidator interface {
	Validate(ctx context.Context, payload any) error
}
