package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/npratt/reroll/internal/events"
)

// matchColor is the embed accent for a matched run.
const matchColor = 0x2ECC71

// Discord posts an embed to a channel webhook.
type Discord struct {
	url    string
	client *http.Client
}

// NewDiscord creates a Discord notifier for webhook url.
func NewDiscord(url string, timeout time.Duration) *Discord {
	return &Discord{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Notifier.
func (d *Discord) Name() string { return "discord" }

// Notify implements Notifier.
func (d *Discord) Notify(ctx context.Context, msg Message) error {
	return d.sendEmbed(ctx, embedFor(msg))
}

func embedFor(msg Message) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Attempts", Value: fmt.Sprint(msg.Attempts), Inline: true},
		{Name: "Time", Value: msg.Duration.Round(time.Second).String(), Inline: true},
	}
	if len(msg.Targets) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Targets", Value: strings.Join(msg.Targets, "\n")})
	}
	if len(msg.Detected) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Rolled", Value: events.FormatDetected(msg.Detected)})
	}
	return &discordgo.MessageEmbed{
		Title:     msg.Title(),
		Color:     matchColor,
		Fields:    fields,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "run " + events.ShortID(msg.RunID)},
	}
}

func (d *Discord) sendEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error {
	payload, err := json.Marshal(struct {
		Embeds []*discordgo.MessageEmbed `json:"embeds"`
	}{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		return fmt.Errorf("marshal webhook embed: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("payload_json", string(payload)); err != nil {
		return fmt.Errorf("prepare webhook payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, &body)
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
