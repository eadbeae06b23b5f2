package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gunvolt24/dms_events/config"
	"github.com/Gunvolt24/dms_events/internal/app"
	"github.com/Gunvolt24/dms_events/internal/kafka"
)

// CLI повторной обработки: одно сообщение (-offset) или диапазон (-start/-end).
func main() {
	topic := flag.String("topic", "", "topic with user-profile events to replay (default: first of DMS_KAFKA_TOPICS)")
	partition := flag.Int("partition", 0, "partition number")
	offset := flag.Int64("offset", -1, "single message offset")
	start := flag.Int64("start", -1, "range start offset (inclusive)")
	end := flag.Int64("end", -1, "range end offset (inclusive)")
	group := flag.String("group", "", "consumer group to commit offsets to (empty: no commit)")
	flag.Parse()

	single := *offset >= 0
	ranged := *start >= 0 || *end >= 0
	if single == ranged {
		fmt.Fprintln(os.Stderr, "use either -offset or -start/-end")
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, cleanup, err := app.NewReplayer(ctx, &cfg, app.ReplayOptions{Topic: *topic, GroupID: *group})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	var report kafka.Report
	if single {
		report, err = r.Single(ctx, *partition, *offset)
	} else {
		report, err = r.Range(ctx, *partition, *start, *end)
	}
	cleanup()

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}
