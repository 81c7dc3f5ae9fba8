// Package ticker pulls the upstream ticker endpoint and turns it into display rows.
package ticker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"kimp-board/domain"
	"kimp-board/errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

const tickerPath = "/api/upbit/ticker"

type Fetcher struct {
	log        *slog.Logger
	httpClient *http.Client
	baseURL    string
	catalog    domain.CoinCatalog
}

func NewFetcher(log *slog.Logger, httpClient *http.Client, baseURL string, catalog domain.CoinCatalog) *Fetcher {
	return &Fetcher{
		log:        log,
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		catalog:    catalog,
	}
}

// Fetch runs one request for marketIDs and returns the rows in response order.
// Any transport, status or decoding failure yields an empty result.
// Records without catalog metadata are logged and skipped.
func (f *Fetcher) Fetch(ctx context.Context, marketIDs []string) []domain.DisplayCoin {
	records, err := f.FetchRecords(ctx, marketIDs)
	if err != nil {
		f.log.Error("Ticker fetch failed", "error", err)
		return nil
	}

	conversions := domain.Convert(records, f.catalog)
	for _, conversion := range conversions {
		var unmapped *errors.UnmappedMarketError
		if stderrors.As(conversion.Err, &unmapped) {
			f.log.Warn("Skipping market without coin metadata", "market", unmapped.Market)
		}
	}
	return domain.Coins(conversions)
}

// FetchRecords performs the HTTP round trip and decodes the raw records.
func (f *Fetcher) FetchRecords(ctx context.Context, marketIDs []string) ([]domain.MarketRecord, error) {
	endpoint := f.endpoint(marketIDs)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", errors.ErrFetchFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: HTTP %d: %s", errors.ErrFetchFailure, resp.StatusCode, string(body))
	}

	var records []domain.MarketRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errors.ErrFetchFailure, err)
	}
	return records, nil
}

func (f *Fetcher) endpoint(marketIDs []string) string {
	markets := lo.Map(marketIDs, func(id string, _ int) string {
		return url.QueryEscape(id)
	})
	return f.baseURL + tickerPath + "?markets=" + strings.Join(markets, ",")
}
