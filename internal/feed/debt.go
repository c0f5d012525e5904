package feed

import (
	"context"
	"fmt"
	"sync"

	"astock-signal-trader-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DebtCache caches the per-symbol margin financing balance for one trade
// date. The full detail table is loaded once on first use; a symbol missing
// from the table reads as zero. Refresh discards the table so the next read
// reloads it.
type DebtCache struct {
	client    *resty.Client
	token     string
	tradeDate string
	logger    *zap.Logger
	limiter   *rate.Limiter

	mu      sync.Mutex
	loaded  bool
	amounts map[string]float64
}

// NewDebtCache creates a cache for the margin detail of one trade date.
// Nothing is fetched until the first lookup.
func NewDebtCache(cfg *config.MarketData, tradeDate string, logger *zap.Logger) *DebtCache {
	return &DebtCache{
		client:    resty.New().SetBaseURL(cfg.BaseURL),
		token:     cfg.Token,
		tradeDate: tradeDate,
		logger:    logger.Named("debt"),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// DebtAmount returns the margin financing balance for symbol, 0 when the
// symbol carries no margin debt.
func (d *DebtCache) DebtAmount(ctx context.Context, symbol string) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		amounts, err := d.fetch(ctx)
		if err != nil {
			return 0, err
		}
		d.amounts = amounts
		d.loaded = true
	}

	return d.amounts[symbol], nil
}

// Refresh drops the cached table so the next lookup reloads it.
func (d *DebtCache) Refresh() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = false
	d.amounts = nil
}

func (d *DebtCache) fetch(ctx context.Context) (map[string]float64, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var result dataResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"api_name": "margin_detail",
			"token":    d.token,
			"params":   map[string]string{"trade_date": d.tradeDate},
			"fields":   "ts_code,rzye",
		}).
		SetResult(&result).
		Post("/")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch margin detail: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("margin detail request failed with status %s", resp.Status())
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("margin detail API error: %s", result.Msg)
	}

	codeIdx := result.fieldIndex("ts_code")
	amountIdx := result.fieldIndex("rzye")
	if codeIdx < 0 || amountIdx < 0 {
		return nil, fmt.Errorf("margin detail response missing ts_code/rzye columns")
	}

	amounts := make(map[string]float64, len(result.Data.Items))
	for _, item := range result.Data.Items {
		if len(item) <= codeIdx || len(item) <= amountIdx {
			continue
		}
		code, _ := item[codeIdx].(string)
		amount, _ := item[amountIdx].(float64)
		if code != "" {
			amounts[code] = amount
		}
	}

	d.logger.Info("Loaded margin detail", zap.String("trade_date", d.tradeDate), zap.Int("symbols", len(amounts)))
	return amounts, nil
}
