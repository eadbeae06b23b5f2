package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gunvolt24/dms_events/internal/ports"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"
	FormatJSONL InputFormat = "jsonl"
)

// ValidateFile — валидирует файл как JSON или JSONL (записи типа T) и пишет валидный вывод в writer.
func ValidateFile[T any](ctx context.Context, validator ports.SchemaValidator, filePath string, format InputFormat, ow io.Writer) (string, error) {
	resSummary := ""

	// auto по расширению
	if format == FormatAuto {
		switch strings.ToLower(filepath.Ext(filePath)) {
		case ".jsonl":
			format = FormatJSONL
		default:
			// по умолчанию считаем JSON
			format = FormatJSON
		}
	}

	switch format {
	case FormatJSON, FormatJSONL:
	default:
		return resSummary, fmt.Errorf("unsupported format: %s", format)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return resSummary, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	if format == FormatJSONL {
		result, err := ValidateJSONLStream[T](ctx, validator, file, ow)
		if err != nil {
			return resSummary, err
		}
		return fmt.Sprintf("%d valid / %d invalid", result.ValidLinesCount, result.InvalidLinesCount), nil
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		return resSummary, fmt.Errorf("read file: %w", err)
	}
	payload, err := FromJSON[T](ctx, validator, raw)
	if err != nil {
		return "0 valid / 1 invalid", err
	}
	canonical, _ := json.Marshal(payload)
	if _, err := ow.Write(canonical); err != nil {
		return resSummary, fmt.Errorf("write json: %w", err)
	}
	if _, err := ow.Write([]byte("\n")); err != nil {
		return resSummary, fmt.Errorf("write newline: %w", err)
	}
	return "1 valid / 0 invalid", nil
}
