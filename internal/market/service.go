package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
)

// userAgent identifies the engine to the public signal sources.
const userAgent = "STOK-Inventory/1.0"

// Sentiment thresholds for the BTC spot-price risk proxy: risk-on markets
// correlate with calm supply chains.
const (
	sentimentStableAbove   = 60000.0
	sentimentVolatileBelow = 30000.0
)

// Shipping stress thresholds on the USD/EUR rate: a weak euro signals
// supply-chain pressure for USD buyers.
const (
	shippingElevatedBelow = 0.85
	shippingLowAbove      = 0.95
)

// Service fetches the three independent signal sources. Every fetch is
// best effort: a failure yields a neutral value, never an error.
type Service struct {
	cfg    config.MarketConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a market signal service.
func NewService(cfg config.MarketConfig, logger *zap.Logger) *Service {
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// FetchContext aggregates all market signals. It never fails; sources
// that cannot be reached degrade to neutral values.
func (s *Service) FetchContext(ctx context.Context) *Context {
	mc := Neutral(s.now())

	rates := s.fetchExchangeRates(ctx)
	if rates != nil {
		mc.Rates = rates
		if eur, ok := rates["EUR"]; ok {
			mc.USDEUR = &eur
		}
	}

	mc.Sentiment = s.fetchRiskSentiment(ctx)
	mc.Shipping = s.fetchShippingStress(ctx)

	if mc.Sentiment == SentimentVolatile {
		mc.Signals = append(mc.Signals, "Market volatility detected - consider increasing safety stock")
	}
	if mc.Shipping == ShippingElevated {
		mc.Signals = append(mc.Signals, "Shipping costs elevated - factor 10-15% premium into order value")
	}
	if mc.USDEUR != nil && *mc.USDEUR < 0.88 {
		mc.Signals = append(mc.Signals, "Strong USD - favorable for USD-denominated imports")
	}

	s.logger.Info("Market context fetched",
		zap.String("sentiment", mc.Sentiment),
		zap.String("shipping", mc.Shipping),
		zap.Int("signals", len(mc.Signals)))
	return mc
}

// fetchExchangeRates returns USD exchange rates, or nil on failure.
func (s *Service) fetchExchangeRates(ctx context.Context) map[string]float64 {
	var payload struct {
		Date  string             `json:"date"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := s.fetchJSON(ctx, s.cfg.ExchangeURL, &payload); err != nil {
		s.logger.Warn("Exchange rate fetch failed", zap.Error(err))
		return nil
	}
	if len(payload.Rates) == 0 {
		return nil
	}
	return payload.Rates
}

// fetchRiskSentiment derives a sentiment class from the BTC spot price.
func (s *Service) fetchRiskSentiment(ctx context.Context) string {
	var payload struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := s.fetchJSON(ctx, s.cfg.SentimentURL, &payload); err != nil {
		s.logger.Warn("Sentiment fetch failed", zap.Error(err))
		return SentimentNeutral
	}

	price, err := strconv.ParseFloat(payload.Data.Amount, 64)
	if err != nil {
		return SentimentNeutral
	}
	switch {
	case price > sentimentStableAbove:
		return SentimentStable
	case price < sentimentVolatileBelow:
		return SentimentVolatile
	default:
		return SentimentNeutral
	}
}

// fetchShippingStress derives a stress class from the USD/EUR rate.
func (s *Service) fetchShippingStress(ctx context.Context) string {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := s.fetchJSON(ctx, s.cfg.ShippingURL, &payload); err != nil {
		s.logger.Warn("Shipping stress fetch failed", zap.Error(err))
		return ShippingNormal
	}

	eur, ok := payload.Rates["EUR"]
	if !ok {
		return ShippingNormal
	}
	switch {
	case eur < shippingElevatedBelow:
		return ShippingElevated
	case eur > shippingLowAbove:
		return ShippingLow
	default:
		return ShippingNormal
	}
}

// fetchJSON performs one best-effort GET with the service timeout.
func (s *Service) fetchJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
