package validate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Gunvolt24/dms_events/internal/ports"
)

// MaxReportedLineErrors — сколько ошибок по строкам сохраняется в JSONLResult.
const MaxReportedLineErrors = 100

// LineError — невалидная строка JSONL (нумерация с 1).
type LineError struct {
	Line int
	Err  error
}

func (e LineError) String() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

// JSONLResult — статистика валидации потока JSONL.
type JSONLResult struct {
	ValidLinesCount   int
	InvalidLinesCount int
	Errors            []LineError // первые MaxReportedLineErrors невалидных строк
}

// ValidateJSONLStream — каждая непустая строка проверяется как событие T; валидные события
// пишутся в writer каноническим JSON по одному на строку (готовые к отправке в топик).
// Невалидные строки не прерывают поток.
func ValidateJSONLStream[T any](ctx context.Context, validator ports.SchemaValidator, ir io.Reader, ow io.Writer) (JSONLResult, error) {
	var res JSONLResult

	scanner := bufio.NewScanner(ir)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return res, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		payload, err := FromJSON[T](ctx, validator, raw)
		if err != nil {
			res.InvalidLinesCount++
			if len(res.Errors) < MaxReportedLineErrors {
				res.Errors = append(res.Errors, LineError{Line: line, Err: err})
			}
			continue
		}

		canonical, err := json.Marshal(payload)
		if err != nil {
			return res, fmt.Errorf("marshal line %d: %w", line, err)
		}
		if _, err := ow.Write(append(canonical, '\n')); err != nil {
			return res, fmt.Errorf("write line %d: %w", line, err)
		}
		res.ValidLinesCount++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	return res, nil
}
