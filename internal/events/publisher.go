// Package events publishes new waitlist leads to a Redis stream and
// processes them in a consumer group.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guaupro/landing/internal/model"
)

const (
	// StreamKey is the Redis stream for new leads.
	StreamKey = "stream:waitlist_leads"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:waitlist_leads:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// NotifierName labels the publisher in notification metrics.
	NotifierName = "lead_stream"
)

// LeadPayload is the compact lead format written to the stream.
// Phone numbers stay in Postgres only.
type LeadPayload struct {
	LeadID           string   `json:"id"`
	Email            string   `json:"em"`
	FullName         string   `json:"fn"`
	BusinessType     string   `json:"bt"`
	PetVolume        string   `json:"pv"`
	CompanyName      string   `json:"cn,omitempty"`
	Features         []string `json:"ft,omitempty"`
	MarketingConsent bool     `json:"mc"`
	CreatedAt        int64    `json:"t"` // Unix milliseconds
}

// NewLeadPayload builds the stream payload for lead.
func NewLeadPayload(lead *model.Lead) LeadPayload {
	return LeadPayload{
		LeadID:           lead.ID,
		Email:            lead.Email,
		FullName:         lead.FullName,
		BusinessType:     string(lead.BusinessType),
		PetVolume:        string(lead.PetVolume),
		CompanyName:      model.Deref(lead.CompanyName),
		Features:         lead.Features,
		MarketingConsent: lead.MarketingConsent,
		CreatedAt:        lead.CreatedAt.UnixMilli(),
	}
}

// Lead converts the payload back into a lead.
func (p LeadPayload) Lead() *model.Lead {
	return &model.Lead{
		ID:               p.LeadID,
		Email:            p.Email,
		FullName:         p.FullName,
		BusinessType:     model.BusinessType(p.BusinessType),
		PetVolume:        model.PetVolume(p.PetVolume),
		CompanyName:      model.OptionalString(p.CompanyName),
		Features:         p.Features,
		MarketingConsent: p.MarketingConsent,
		CreatedAt:        time.UnixMilli(p.CreatedAt).UTC(),
	}
}

// Publisher appends new leads to the stream.
type Publisher struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewPublisher creates a lead stream publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		logger: logger.With("component", "events.publisher"),
	}
}

// Name implements waitlist.Notifier.
func (p *Publisher) Name() string {
	return NotifierName
}

// Notify implements waitlist.Notifier by publishing lead to the stream.
func (p *Publisher) Notify(ctx context.Context, lead *model.Lead) error {
	streamID, err := p.Publish(ctx, NewLeadPayload(lead))
	if err != nil {
		return err
	}
	p.logger.Debug("lead event published",
		"lead_id", lead.ID,
		"stream_id", streamID,
	)
	return nil
}

// Publish adds payload to the stream and returns the stream id.
func (p *Publisher) Publish(ctx context.Context, payload LeadPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal lead event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}
