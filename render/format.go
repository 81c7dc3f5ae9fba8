package render

import (
	"fmt"
	"kimp-board/domain"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Class string

const (
	Positive Class = "positive"
	Negative Class = "negative"
)

// Cell is a formatted value with its visual class.
type Cell struct {
	Text  string `json:"text"`
	Class Class  `json:"class"`
}

// Row is one drawn line of the ticker table.
type Row struct {
	Market  string `json:"market"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Price   string `json:"price"`
	Premium Cell   `json:"premium"`
	Change  Cell   `json:"change"`
	Volume  string `json:"volume"`
}

// Formatter applies the row formatting rules for a locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a formatter for a BCP 47 locale such as "ko" or "en-US".
// An unparsable locale falls back to Korean.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Korean
	}
	return Formatter{printer: message.NewPrinter(tag)}
}

// Price rounds to an integer and groups thousands, without currency symbol.
func (f Formatter) Price(price float64) string {
	rounded := decimal.NewFromFloat(price).Round(0).IntPart()
	return f.printer.Sprintf("%d", rounded)
}

// SignedPercent prints v with two decimals, a "+" when v >= 0 and a "%" suffix.
// Negative zero is treated as zero.
func SignedPercent(v float64) Cell {
	if v >= 0 {
		return Cell{Text: fmt.Sprintf("+%.2f%%", math.Abs(v)), Class: Positive}
	}
	return Cell{Text: fmt.Sprintf("%.2f%%", v), Class: Negative}
}

func (f Formatter) Row(coin domain.DisplayCoin) Row {
	return Row{
		Market:  coin.Market,
		Name:    coin.Name,
		Code:    coin.Code,
		Price:   f.Price(coin.Price),
		Premium: SignedPercent(coin.Premium),
		Change:  SignedPercent(coin.ChangePercent),
		Volume:  coin.VolumeLabel,
	}
}
