package handler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNoHandler — для топика не зарегистрирован обработчик.
var ErrNoHandler = errors.New("no handler registered for topic")

// schemaAware — обработчик умеет сообщить, задана ли у него схема.
type schemaAware interface {
	HasSchema() bool
}

// Registry — соответствие topic → Handler. Заполняется при старте, дальше только читается.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register — привязать обработчик к топику.
// Пустой топик, nil-обработчик, повторная регистрация и обработчик без схемы — ошибки конфигурации.
func (r *Registry) Register(topic string, h Handler) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("register handler: empty topic")
	}
	if h == nil {
		return fmt.Errorf("register handler for %q: nil handler", topic)
	}
	if sa, ok := h.(schemaAware); ok && !sa.HasSchema() {
		return fmt.Errorf("register handler for %q: %w", topic, ErrSchemaNotConfigured)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[topic]; exists {
		return fmt.Errorf("register handler for %q: already registered", topic)
	}
	r.handlers[topic] = h
	return nil
}

// MustRegister — Register, паникующий при ошибке (для wiring в main).
func (r *Registry) MustRegister(topic string, h Handler) {
	if err := r.Register(topic, h); err != nil {
		panic(err)
	}
}

// Lookup — обработчик топика.
func (r *Registry) Lookup(topic string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, topic)
	}
	return h, nil
}

// Topics — отсортированный список топиков с обработчиками.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
