package service

import (
	"context"
	"time"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"
)

// SendDailySummaries pushes a daily_summary event to every linked client.
// Called by the scheduler once per day; failures for one client do not stop
// the sweep.
func (s *RelayService) SendDailySummaries(ctx context.Context) {
	clients, err := s.clients.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list clients for daily summary")
		return
	}

	for i := range clients {
		client := clients[i]

		stats, err := s.TodayStats(ctx, &client)
		if err != nil {
			log.WithError(err).WithField("slug", client.Slug).Warn("Failed to compute daily summary stats")
			continue
		}
		if stats.OrderCount == 0 {
			// No orders, no summary. Quiet days stay quiet.
			continue
		}

		date := time.Now().In(clientLocation(&client)).Format("Jan 02, 2006")
		payload := map[string]interface{}{
			"date":        date,
			"order_count": stats.OrderCount,
			"revenue":     stats.Revenue,
			"avg_order":   stats.AvgOrder,
		}

		s.fanOut(client.Slug, "daily summary", func(ctx context.Context) error {
			return s.notifier.NotifyEvent(ctx, &client, domain.EventDailySummary, payload)
		})
	}
}

func clientLocation(client *domain.Client) *time.Location {
	loc, err := time.LoadLocation(client.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RunSummaryScheduler fires SendDailySummaries every day at the given local
// server time until ctx is cancelled. Blocks; run it in a goroutine.
func (s *RelayService) RunSummaryScheduler(ctx context.Context, hour, minute int) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}

		log.WithField("at", next.Format(time.RFC3339)).Info("Next daily summary scheduled")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			s.SendDailySummaries(ctx)
		}
	}
}
