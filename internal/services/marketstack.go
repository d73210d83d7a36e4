package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/haptickrill/krill/internal/errors"
	"github.com/haptickrill/krill/internal/models"
	"github.com/haptickrill/krill/internal/repositories"
)

const (
	// maxSpanYears is the widest range the provider serves in one request.
	maxSpanYears = 2

	// requestPageLimit is the provider's per-request row cap.
	requestPageLimit = 1000
)

// MarketstackConfig holds remote provider settings.
type MarketstackConfig struct {
	APIKey  string
	BaseURL string
}

// NewMarketstackConfigFromEnv reads provider settings from the environment.
func NewMarketstackConfigFromEnv() *MarketstackConfig {
	baseURL := os.Getenv("MARKETSTACK_BASE_URL")
	if baseURL == "" {
		baseURL = "http://api.marketstack.com/v1"
	}
	return &MarketstackConfig{
		APIKey:  os.Getenv("MARKETSTACK_API_KEY"),
		BaseURL: baseURL,
	}
}

// marketstackResponse is the provider's paginated JSON envelope.
type marketstackResponse struct {
	Pagination struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Count  int `json:"count"`
		Total  int `json:"total"`
	} `json:"pagination"`
	Data []marketstackEOD `json:"data"`
}

type marketstackEOD struct {
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	AdjOpen     float64 `json:"adj_open"`
	AdjHigh     float64 `json:"adj_high"`
	AdjLow      float64 `json:"adj_low"`
	AdjClose    float64 `json:"adj_close"`
	AdjVolume   float64 `json:"adj_volume"`
	Dividend    float64 `json:"dividend"`
	SplitFactor float64 `json:"split_factor"`
	Symbol      string  `json:"symbol"`
	Exchange    string  `json:"exchange"`
	Date        string  `json:"date"`
}

// MarketstackClient is the PriceSource backed by the Marketstack EOD API.
// All requests pass through a shared process-wide rate limiter.
type MarketstackClient struct {
	cfg        *MarketstackConfig
	httpClient *http.Client
	prices     repositories.PriceRepository
	limiter    *RateLimiter
	logger     *zap.Logger
	backoff    func(time.Duration)
}

// NewMarketstackClient creates a new Marketstack price source.
func NewMarketstackClient(cfg *MarketstackConfig, prices repositories.PriceRepository, limiter *RateLimiter, logger *zap.Logger) *MarketstackClient {
	return &MarketstackClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		prices:     prices,
		limiter:    limiter,
		logger:     logger,
		backoff:    time.Sleep,
	}
}

func (c *MarketstackClient) FetchRange(ctx context.Context, symbol string, from, to time.Time) ([]*models.EODPrice, error) {
	symbol = models.NormalizeTicker(symbol)
	if symbol == "" {
		return nil, &apperrors.ErrInvalidSymbol{Symbol: symbol}
	}
	from, to = models.DateOnly(from), models.DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s after %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	splitAt := from.AddDate(maxSpanYears, 0, 0)
	if to.After(splitAt) {
		// The provider caps range queries at two years, so the span is
		// served as two sequential sub-ranges. A failed half degrades to an
		// empty result rather than failing the whole fetch.
		var rows []*models.EODPrice
		halves := [][2]time.Time{
			{from, splitAt},
			{splitAt.AddDate(0, 0, 1), to},
		}
		for _, half := range halves {
			part, err := c.fetch(ctx, symbol, half[0], half[1])
			if err != nil {
				c.logger.Warn("sub-range fetch failed, continuing with partial data",
					zap.String("symbol", symbol),
					zap.Time("from", half[0]),
					zap.Time("to", half[1]),
					zap.Error(err))
				continue
			}
			rows = append(rows, part...)
		}
		return rows, nil
	}

	return c.fetch(ctx, symbol, from, to)
}

func (c *MarketstackClient) FetchDay(ctx context.Context, symbol string, date time.Time) (*models.EODPrice, error) {
	day := models.DateOnly(date)
	rows, err := c.FetchRange(ctx, symbol, day, day)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		// The provider answered with no rows for this day: a calendar fact,
		// recorded so future resolutions skip the remote round-trip. Rate
		// limit responses never reach here; they surface as ErrRateLimited.
		if err := c.prices.MarkHoliday(ctx, day); err != nil {
			c.logger.Warn("failed to record market holiday",
				zap.Time("date", day), zap.Error(err))
		}
		return nil, nil
	}
	return rows[0], nil
}

func (c *MarketstackClient) Persist(ctx context.Context, records []*models.EODPrice) (int, error) {
	return c.prices.InsertNew(ctx, records)
}

func (c *MarketstackClient) BackfillYears(ctx context.Context, symbol string, years int) (int, error) {
	to := models.DateOnly(time.Now().UTC())
	from := to.AddDate(-years, 0, 0)
	rows, err := c.FetchRange(ctx, symbol, from, to)
	if err != nil {
		return 0, err
	}
	n, err := c.Persist(ctx, rows)
	if err != nil {
		return 0, err
	}
	c.logger.Info("backfilled price history",
		zap.String("symbol", symbol), zap.Int("years", years), zap.Int("persisted", n))
	return n, nil
}

// fetch issues one rate-limited request for [from, to].
func (c *MarketstackClient) fetch(ctx context.Context, symbol string, from, to time.Time) ([]*models.EODPrice, error) {
	resp, err := c.request(ctx, symbol, from, to)
	if err != nil {
		var rl *apperrors.ErrRateLimited
		if !errors.As(err, &rl) {
			return nil, err
		}
		// Transient: back off once and retry before giving up.
		c.backoff(limiterWindow)
		resp, err = c.request(ctx, symbol, from, to)
		if err != nil {
			return nil, err
		}
	}

	if resp.Pagination.Total > resp.Pagination.Offset+resp.Pagination.Count {
		c.logger.Warn("provider returned a partial page, result is incomplete",
			zap.String("symbol", symbol),
			zap.Int("count", resp.Pagination.Count),
			zap.Int("total", resp.Pagination.Total))
	}

	rows := make([]*models.EODPrice, 0, len(resp.Data))
	for _, raw := range resp.Data {
		row, err := raw.toModel()
		if err != nil {
			c.logger.Warn("skipping malformed provider row",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *MarketstackClient) request(ctx context.Context, symbol string, from, to time.Time) (*marketstackResponse, error) {
	c.limiter.Acquire()

	query := url.Values{}
	query.Set("access_key", c.cfg.APIKey)
	query.Set("symbols", symbol)
	query.Set("date_from", from.Format("2006-01-02"))
	query.Set("date_to", to.Format("2006-01-02"))
	query.Set("limit", fmt.Sprintf("%d", requestPageLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/eod?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch EOD data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &apperrors.ErrRateLimited{Symbol: symbol}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var payload marketstackResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &payload, nil
}

var eodDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

func (e *marketstackEOD) toModel() (*models.EODPrice, error) {
	var day time.Time
	var err error
	for _, layout := range eodDateLayouts {
		if day, err = time.Parse(layout, e.Date); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unparseable date %q: %w", e.Date, err)
	}

	row := &models.EODPrice{
		Symbol:      models.NormalizeTicker(e.Symbol),
		Date:        models.DateOnly(day),
		Open:        decimal.NewFromFloat(e.Open),
		High:        decimal.NewFromFloat(e.High),
		Low:         decimal.NewFromFloat(e.Low),
		Close:       decimal.NewFromFloat(e.Close),
		Volume:      decimal.NewFromFloat(e.Volume),
		AdjOpen:     decimal.NewFromFloat(e.AdjOpen),
		AdjHigh:     decimal.NewFromFloat(e.AdjHigh),
		AdjLow:      decimal.NewFromFloat(e.AdjLow),
		AdjClose:    decimal.NewFromFloat(e.AdjClose),
		AdjVolume:   decimal.NewFromFloat(e.AdjVolume),
		Exchange:    e.Exchange,
		Dividend:    decimal.NewFromFloat(e.Dividend),
		SplitFactor: decimal.NewFromFloat(e.SplitFactor),
	}
	if err := row.Validate(); err != nil {
		return nil, err
	}
	return row, nil
}
