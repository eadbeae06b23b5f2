//go:generate mockgen -source=../source.go   -destination=./mock_source.go -package=mocks
//go:generate mockgen -source=../producer.go -destination=./mock_writer.go -package=mocks

package mocks
