package modbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/disgoorg/snowflake/v2"
)

// MaxMessageLength is the content limit of a single Discord message.
const MaxMessageLength = 2000

const codeFence = "```"

// PostReport sends the rendered report to a Discord webhook, split over as many
// messages as needed. Each message is a code block so the tables keep their alignment.
func PostReport(ctx context.Context, cfg DiscordConfig, report string) error {
	webhookID, err := snowflake.Parse(cfg.WebhookID)
	if err != nil {
		return fmt.Errorf("invalid output.discord.webhook_id: %w", err)
	}

	client := webhook.New(webhookID, cfg.WebhookToken)
	defer client.Close(ctx)

	for _, chunk := range SplitMessage(report, MaxMessageLength-2*len(codeFence)-len("md\n\n")) {
		if _, err = client.CreateContent(codeFence+"md\n"+chunk+"\n"+codeFence, rest.WithCtx(ctx)); err != nil {
			return fmt.Errorf("error posting report to webhook %s: %w", webhookID, err)
		}
	}
	return nil
}

// SplitMessage cuts content into chunks of at most limit runes, preferring line breaks.
func SplitMessage(content string, limit int) []string {
	content = strings.Trim(content, "\n")
	if content == "" {
		return nil
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.Split(content, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}

		needed := len(runes)
		if size > 0 {
			needed++
		}
		if size+needed > limit {
			flush()
			needed = len(runes)
		}
		if size > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(string(runes))
		size += needed
	}
	flush()
	return chunks
}
