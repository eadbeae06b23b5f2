// Package notify — каналы оповещений о сообщениях, брошенных после всех попыток.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Gunvolt24/dms_events/internal/ports"
)

// Ограничение Discord на длину content.
const discordContentLimit = 2000

var _ ports.Notifier = (*Discord)(nil)

// DiscordConfig — параметры webhook’а.
type DiscordConfig struct {
	WebhookURL  string
	BotName     string
	Environment string
	Timeout     time.Duration
}

// Discord — отправка алерта в канал через webhook. Успех: 204 No Content.
type Discord struct {
	cfg    DiscordConfig
	client *http.Client
}

func NewDiscord(cfg DiscordConfig) *Discord {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BotName == "" {
		cfg.BotName = "dms-events"
	}
	return &Discord{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type discordMessage struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

func (d *Discord) Notify(ctx context.Context, alert ports.Alert) error {
	body, err := json.Marshal(discordMessage{Content: d.format(alert), Username: d.cfg.BotName})
	if err != nil {
		return fmt.Errorf("discord: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}
	return nil
}

// format — markdown-сообщение: окружение, источник, координаты, число попыток и ошибка со стеком.
func (d *Discord) format(a ports.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Environment:** %s\n", d.cfg.Environment)
	fmt.Fprintf(&b, "**Handler:** %s\n", a.Source)
	fmt.Fprintf(&b, "**Topic:** %s **Partition:** %d **Offset:** %d\n", a.Coordinates.Topic, a.Coordinates.Partition, a.Coordinates.Offset)
	if a.Coordinates.Key != "" {
		fmt.Fprintf(&b, "**Key:** %s\n", a.Coordinates.Key)
	}
	fmt.Fprintf(&b, "**Attempts:** %d\n", a.Attempts)

	head := b.String()
	detail := "```\n" + a.Error + "\n```"
	if room := discordContentLimit - len(head); len(detail) > room {
		const tail = "\n…```"
		cut := room - len(tail)
		if cut < 0 {
			cut = 0
		}
		// режем по границе руны, иначе Discord получит битый UTF-8
		for cut > 0 && !utf8.RuneStart(detail[cut]) {
			cut--
		}
		detail = detail[:cut] + tail
	}
	return head + detail
}
