// Package domain contains the core concepts of the board.
// Tickers are recomputed every refresh cycle and never persisted.
// Chat messages are immutable once appended to the store.
package domain

import (
	"kimp-board/errors"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// VolumeSuffix is the 억 (10^8) unit appended to the 24h traded value.
const VolumeSuffix = "억"

var volumeUnit = decimal.New(1, 8)

// MarketRecord is one entry of the upstream ticker response.
type MarketRecord struct {
	Market           string  `json:"market"`
	TradePrice       float64 `json:"trade_price"`
	SignedChangeRate float64 `json:"signed_change_rate"`
	AccTradePrice24h float64 `json:"acc_trade_price_24h"`
}

// DisplayCoin is a display-ready row. Price stays raw; rounding happens at render time.
type DisplayCoin struct {
	Market        string  `json:"market"`
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	Price         float64 `json:"price"`
	Premium       float64 `json:"premium"`
	ChangePercent float64 `json:"changePercent"`
	VolumeLabel   string  `json:"volumeLabel"`
}

// Conversion is the per-record outcome of normalizing a ticker batch:
// either a Coin or an *errors.UnmappedMarketError.
type Conversion struct {
	Coin DisplayCoin
	Err  error
}

func (c Conversion) OK() bool { return c.Err == nil }

func NewDisplayCoin(record MarketRecord, meta CoinMeta) DisplayCoin {
	return DisplayCoin{
		Market: record.Market,
		Name:   meta.Name,
		Code:   meta.Code,
		Price:  record.TradePrice,
		// Cross-exchange premium has no rate source yet, the column stays at zero.
		Premium:       0,
		ChangePercent: record.SignedChangeRate * 100,
		VolumeLabel:   VolumeLabel(record.AccTradePrice24h),
	}
}

// VolumeLabel scales a KRW amount to 억 units, rounding half up to an integer.
func VolumeLabel(accTradePrice float64) string {
	return decimal.NewFromFloat(accTradePrice).Div(volumeUnit).Round(0).String() + VolumeSuffix
}

// Convert maps every record, in response order, against the catalog.
func Convert(records []MarketRecord, catalog CoinCatalog) []Conversion {
	return lo.Map(records, func(record MarketRecord, _ int) Conversion {
		meta, ok := catalog.Lookup(record.Market)
		if !ok {
			return Conversion{Err: &errors.UnmappedMarketError{Market: record.Market}}
		}
		return Conversion{Coin: NewDisplayCoin(record, meta)}
	})
}

// Coins keeps the successful conversions, preserving order.
func Coins(conversions []Conversion) []DisplayCoin {
	return lo.FilterMap(conversions, func(c Conversion, _ int) (DisplayCoin, bool) {
		return c.Coin, c.OK()
	})
}
