package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"astock-signal-trader-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CalendarClient answers "is this date a trading day" against the market-data
// API. Answers are cached per date and fetched on miss, so the API is hit at
// most once per unknown date.
type CalendarClient struct {
	client  *resty.Client
	token   string
	logger  *zap.Logger
	limiter *rate.Limiter

	mu    sync.Mutex
	cache map[string]bool
}

// NewCalendarClient creates a calendar client with an empty cache.
func NewCalendarClient(cfg *config.MarketData, logger *zap.Logger) *CalendarClient {
	return &CalendarClient{
		client:  resty.New().SetBaseURL(cfg.BaseURL),
		token:   cfg.Token,
		logger:  logger.Named("calendar"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		cache:   make(map[string]bool),
	}
}

// dataResponse is the market-data API's generic column-oriented envelope.
type dataResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

// fieldIndex locates a column in the envelope, -1 when absent.
func (r *dataResponse) fieldIndex(name string) int {
	for i, f := range r.Data.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// IsTradingDay reports whether the exchange is open on the given date.
func (c *CalendarClient) IsTradingDay(ctx context.Context, t time.Time) (bool, error) {
	date := t.Format("20060102")

	c.mu.Lock()
	open, ok := c.cache[date]
	c.mu.Unlock()
	if ok {
		return open, nil
	}

	open, err := c.fetch(ctx, date)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.cache[date] = open
	c.mu.Unlock()

	return open, nil
}

func (c *CalendarClient) fetch(ctx context.Context, date string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var result dataResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"api_name": "trade_cal",
			"token":    c.token,
			"params":   map[string]string{"start_date": date, "end_date": date},
			"fields":   "cal_date,is_open",
		}).
		SetResult(&result).
		Post("/")
	if err != nil {
		return false, fmt.Errorf("failed to fetch trading calendar: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("calendar request failed with status %s", resp.Status())
	}
	if result.Code != 0 {
		return false, fmt.Errorf("calendar API error: %s", result.Msg)
	}

	dateIdx := result.fieldIndex("cal_date")
	openIdx := result.fieldIndex("is_open")
	if dateIdx < 0 || openIdx < 0 {
		return false, fmt.Errorf("calendar response missing cal_date/is_open columns")
	}

	for _, item := range result.Data.Items {
		if len(item) <= dateIdx || len(item) <= openIdx {
			continue
		}
		d, _ := item[dateIdx].(string)
		if d != date {
			continue
		}
		open, _ := item[openIdx].(float64)
		return open > 0, nil
	}

	c.logger.Warn("Calendar API returned no row for date", zap.String("date", date))
	return false, nil
}
