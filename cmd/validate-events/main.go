package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/pkg/validate"
)

// CLI-приложение для проверки событий профиля (JSON / JSONL) до отправки в Kafka.
// Валидные события печатаются в stdout, по одному JSON на строку.
func main() {
	inputPath := flag.String("in", "", "path to input (.json or .jsonl). If empty, reads JSONL from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	flag.Parse()

	ctx := context.Background()
	schema := validate.NewSchemaValidator()

	// stdin: построчно, с номерами невалидных строк
	if *inputPath == "" {
		res, err := validate.ValidateJSONLStream[domain.UserProfile](ctx, schema, os.Stdin, os.Stdout)
		for _, le := range res.Errors {
			fmt.Fprintln(os.Stderr, le)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "validation: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "%d valid / %d invalid\n", res.ValidLinesCount, res.InvalidLinesCount)
		if res.InvalidLinesCount > 0 {
			os.Exit(1)
		}
		return
	}

	summary, err := validate.ValidateFile[domain.UserProfile](ctx, schema, *inputPath, validate.InputFormat(*formatStr), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "validation: %v (%s)\n", err, summary)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "validation ok (%s)\n", summary)
}
