package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports"
)

// Проверка, что UserService удовлетворяет порту чтения профилей.
var _ ports.UserReadService = (*UserService)(nil)

// ErrProducerNotConfigured — публикация событий выключена (продюсер не передан).
var ErrProducerNotConfigured = errors.New("event producer is not configured")

// UserService — прикладная логика проекции профилей (без знаний о транспорте).
type UserService struct {
	repo     ports.UserRepository
	cache    ports.UserCache
	producer ports.EventProducer // может быть nil: только чтение/проекция
	log      ports.Logger
}

// NewUserService — DI-конструктор.
func NewUserService(
	repo ports.UserRepository,
	cache ports.UserCache,
	producer ports.EventProducer,
	log ports.Logger,
) *UserService {
	return &UserService{
		repo:     repo,
		cache:    cache,
		producer: producer,
		log:      log,
	}
}

// GetUser — профиль по id: сначала из кэша, при промахе из БД с записью в кэш.
// Возвращает (*UserProfile, nil) или (nil, nil), если записи нет.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	if user, found := s.cache.Get(ctx, id); found {
		s.log.Infof(ctx, "cache hit for user=%s", id)
		return user, nil
	}
	s.log.Infof(ctx, "cache miss for user=%s", id)

	start := time.Now()
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.log.Errorf(ctx, "repo.GetByID failed id=%s err=%v", id, err)
		return nil, err
	}

	if user != nil {
		if setErr := s.cache.Set(ctx, user); setErr != nil {
			s.log.Warnf(ctx, "cache.Set failed id=%s err=%v", id, setErr)
		}
	}

	s.log.Infof(ctx, "db fetch user=%s took=%s", id, time.Since(start))
	return user, nil
}

// RecentUsers — последние изменённые профили напрямую из БД (кэш не трогаем).
func (s *UserService) RecentUsers(ctx context.Context, limit int) ([]*domain.UserProfile, error) {
	users, err := s.repo.LastUpdated(ctx, limit)
	if err != nil {
		s.log.Errorf(ctx, "repo.LastUpdated failed limit=%d err=%v", limit, err)
		return nil, err
	}
	return users, nil
}

// SaveProfile — применить уже валидированный профиль из события: upsert в БД, затем кэш.
// Ошибка БД возвращается (сообщение будет повторено консьюмером), ошибка кэша — только лог.
func (s *UserService) SaveProfile(ctx context.Context, user *domain.UserProfile) error {
	if user == nil {
		return errors.New("user profile is nil")
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		s.log.Errorf(ctx, "repo.Upsert failed id=%s err=%v", user.ID, err)
		return fmt.Errorf("failed to save user: %w", err)
	}
	if err := s.cache.Set(ctx, user); err != nil {
		s.log.Warnf(ctx, "cache.Set failed id=%s err=%v", user.ID, err)
	}
	s.log.Infof(ctx, "user saved id=%s", user.ID)
	return nil
}

// Publish — отправить событие в брокер и дождаться отчёта о доставке.
// Отказ брокера возвращается ошибкой с сохранением причины.
func (s *UserService) Publish(ctx context.Context, req domain.ProducerRequest) (domain.DeliveryReport, error) {
	if s.producer == nil {
		return domain.DeliveryReport{}, ErrProducerNotConfigured
	}
	report, err := s.producer.Produce(ctx, req)
	if err != nil {
		return report, err
	}
	if report.Err != nil {
		return report, fmt.Errorf("%w: %w", domain.ErrBroker, report.Err)
	}
	return report, nil
}

// WarmUpCache — прогрев кэша последними N изменёнными профилями.
// Если n <= 0, прогрев не выполняется (но это не ошибка).
func (s *UserService) WarmUpCache(ctx context.Context, n int) error {
	if n <= 0 {
		s.log.Warnf(ctx, "cache warm-up skipped: n <= 0 (n=%d)", n)
		return nil
	}

	start := time.Now()
	list, err := s.repo.LastUpdated(ctx, n)
	if err != nil {
		s.log.Errorf(ctx, "repo.LastUpdated failed n=%d err=%v", n, err)
		return err
	}
	if warmUpErr := s.cache.WarmUp(ctx, list); warmUpErr != nil {
		s.log.Warnf(ctx, "cache.WarmUp failed err=%v", warmUpErr)
	}
	s.log.Infof(ctx, "cache warmed with %d users in %s", len(list), time.Since(start))
	return nil
}
