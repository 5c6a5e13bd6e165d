package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/betterhood/hoodbot/internal/format"
	"github.com/betterhood/hoodbot/internal/models"
)

// Notifier mirrors committed ledger entries to a Discord webhook. An empty
// URL disables mirroring; delivery failures are logged, never fatal, and
// never roll back the transaction they describe.
type Notifier struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func NewNotifier(url string, log *zap.Logger) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []webhookField `json:"fields,omitempty"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
}

type webhookPayload struct {
	Username string         `json:"username"`
	Embeds   []webhookEmbed `json:"embeds"`
}

// NotifyEntry posts a single committed movement.
func (n *Notifier) NotifyEntry(ctx context.Context, entry models.LedgerEntry) {
	description := fmt.Sprintf("<@%s> (%s) -> <@%s> (%s): %s",
		entry.FromID, entry.FromPocket, entry.ToID, entry.ToPocket,
		format.Money(entry.Amount))
	n.send(ctx, entry.Reason, description, nil)
}

// NotifyTransfer posts the richer transfer mirror with before/after banks.
func (n *Notifier) NotifyTransfer(ctx context.Context, receipt TransferReceipt) {
	description := fmt.Sprintf("<@%s> has transferred %s to <@%s>.",
		receipt.FromID, format.Money(receipt.Amount), receipt.ToID)
	fields := []webhookField{
		{Name: "Sender's Original Bank", Value: format.Money(receipt.SenderBefore)},
		{Name: "Sender's New Bank", Value: format.Money(receipt.SenderAfter)},
		{Name: "Recipient's Original Bank", Value: format.Money(receipt.ReceiverBefore)},
		{Name: "Recipient's New Bank", Value: format.Money(receipt.ReceiverAfter)},
	}
	n.send(ctx, "Bank Transfer", description, fields)
}

func (n *Notifier) send(ctx context.Context, title, description string, fields []webhookField) {
	if n.url == "" {
		n.log.Debug("transaction webhook not configured, skipping mirror")
		return
	}

	embed := webhookEmbed{
		Title:       title,
		Description: description,
		Color:       0xF44336,
		Fields:      fields,
	}
	embed.Footer.Text = "Better Hood Money"

	body, err := json.Marshal(webhookPayload{
		Username: "Better Hood Money Transactions",
		Embeds:   []webhookEmbed{embed},
	})
	if err != nil {
		n.log.Error("failed to encode webhook payload", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Error("failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Error("transaction webhook delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Error("transaction webhook rejected payload",
			zap.Int("status", resp.StatusCode))
	}
}
