//go:generate mockgen -source=../user_repository.go   -destination=./mock_user_repository.go   -package=mocks
//go:generate mockgen -source=../user_cache.go        -destination=./mock_user_cache.go        -package=mocks
//go:generate mockgen -source=../schema_validator.go  -destination=./mock_schema_validator.go  -package=mocks
//go:generate mockgen -source=../logger.go            -destination=./mock_logger.go            -package=mocks
//go:generate mockgen -source=../notifier.go          -destination=./mock_notifier.go          -package=mocks
//go:generate mockgen -source=../event_producer.go    -destination=./mock_event_producer.go    -package=mocks
//go:generate mockgen -source=../message_consumer.go  -destination=./mock_message_consumer.go  -package=mocks
//go:generate mockgen -source=../user_read_service.go -destination=mock_user_read_service.go   -package=mocks

package mocks
