package domain

import (
	stderrors "errors"
	"kimp-board/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) CoinCatalog {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	return catalog
}

func TestVolumeLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{name: "Half rounds up", input: 250_000_000, expected: "3억"},
		{name: "Below half rounds down", input: 149_999_999, expected: "1억"},
		{name: "Zero volume", input: 0, expected: "0억"},
		{name: "Large volume", input: 12_345_678_901_234, expected: "123457억"},
		{name: "Exact unit", input: 100_000_000, expected: "1억"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, VolumeLabel(tt.input))
		})
	}
}

func TestNewDisplayCoin(t *testing.T) {
	req := require.New(t)
	record := MarketRecord{
		Market:           "KRW-BTC",
		TradePrice:       95_123_456.7,
		SignedChangeRate: -0.004,
		AccTradePrice24h: 250_000_000,
	}

	coin := NewDisplayCoin(record, CoinMeta{Name: "비트코인", Code: "BTC"})

	req.Equal("KRW-BTC", coin.Market)
	req.Equal("비트코인", coin.Name)
	req.Equal("BTC", coin.Code)
	// Price is kept raw, rounding only happens when the row is drawn
	req.Equal(95_123_456.7, coin.Price)
	req.Zero(coin.Premium)
	req.InDelta(-0.4, coin.ChangePercent, 1e-9)
	req.Equal("3억", coin.VolumeLabel)
}

func TestConvert_Keeps_Response_Order(t *testing.T) {
	req := require.New(t)
	catalog := testCatalog(t)

	// Given a response ordered differently from the request
	records := []MarketRecord{
		{Market: "KRW-SOL", TradePrice: 200_000},
		{Market: "KRW-BTC", TradePrice: 90_000_000},
		{Market: "KRW-ETH", TradePrice: 4_000_000},
	}

	// When converting
	conversions := Convert(records, catalog)

	// Then the response order is kept
	req.Len(conversions, 3)
	req.Equal("SOL", conversions[0].Coin.Code)
	req.Equal("BTC", conversions[1].Coin.Code)
	req.Equal("ETH", conversions[2].Coin.Code)
	req.Len(Coins(conversions), 3)
}

func TestConvert_Unmapped_Market(t *testing.T) {
	req := require.New(t)
	catalog := testCatalog(t)

	records := []MarketRecord{
		{Market: "KRW-BTC", TradePrice: 1},
		{Market: "KRW-PEPE", TradePrice: 2},
		{Market: "KRW-XRP", TradePrice: 3},
	}

	conversions := Convert(records, catalog)

	// Then the unmapped id is tagged instead of crashing the batch
	req.True(conversions[0].OK())
	req.False(conversions[1].OK())
	var unmapped *errors.UnmappedMarketError
	req.True(stderrors.As(conversions[1].Err, &unmapped))
	req.Equal("KRW-PEPE", unmapped.Market)

	// And the remaining coins keep their order
	coins := Coins(conversions)
	req.Len(coins, 2)
	req.Equal("BTC", coins[0].Code)
	req.Equal("XRP", coins[1].Code)
}
