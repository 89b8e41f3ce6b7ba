package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/comitanigiacomo/ferienplan-sync/internal/core/domain"
)

const (
	pingSampleSize      = 5
	keepAliveSampleSize = 1
)

type OfferSampler interface {
	Sample(ctx context.Context, limit int) ([]*domain.Offer, error)
}

type PingService struct {
	repo   OfferSampler
	logger *slog.Logger
}

func NewPingService(repo OfferSampler, logger *slog.Logger) *PingService {
	return &PingService{
		repo:   repo,
		logger: logger.With("component", "ping_service"),
	}
}

// Ping runs a small read and reports how long it took.
func (s *PingService) Ping(ctx context.Context) domain.PingResult {
	start := time.Now()
	offers, err := s.repo.Sample(ctx, pingSampleSize)
	elapsed := fmt.Sprintf("%dms", time.Since(start).Milliseconds())

	res := domain.PingResult{
		Timestamp:    time.Now().UTC(),
		ResponseTime: elapsed,
	}

	if err != nil {
		s.logger.Error("Ping failed", "error", err, "response_time", elapsed)
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Message = "Database is reachable"
	res.RecordsFound = len(offers)
	res.SampleData = make([]domain.SampleOffer, 0, len(offers))
	for _, o := range offers {
		res.SampleData = append(res.SampleData, domain.SampleOffer{ID: o.ID, Title: o.Title})
	}

	s.logger.Info("Ping succeeded", "records", res.RecordsFound, "response_time", elapsed)
	return res
}

// KeepAlive issues the cheapest possible read to keep the database active.
func (s *PingService) KeepAlive(ctx context.Context) domain.KeepAliveResult {
	offers, err := s.repo.Sample(ctx, keepAliveSampleSize)

	res := domain.KeepAliveResult{Timestamp: time.Now().UTC()}
	if err != nil {
		s.logger.Error("Keep-alive failed", "error", err)
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Message = "Keep-alive successful"
	res.RecordsFound = len(offers)
	return res
}
