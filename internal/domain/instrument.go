package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument represents a tradeable security. The live Price field is
// mutated only by the price feed tick; order flow reads it for fill
// pricing but never writes it.
type Instrument struct {
	Symbol        string
	Name          string
	TickSize      decimal.Decimal
	LotSize       int64
	PreviousClose decimal.Decimal
	Price         decimal.Decimal // current live price
	Volume        int64           // volume of the current bar
	UpdatedAt     time.Time
}

// Bar is a single OHLCV price bar in an instrument's replayable series.
type Bar struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

// Quote is a point-in-time tradable bid/ask pair derived from an
// instrument's live price and the configured spread.
type Quote struct {
	Symbol string
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	Last   decimal.Decimal
	At     time.Time
}

var (
	two         = decimal.NewFromInt(2)
	tenThousand = decimal.NewFromInt(10000)
)

// BpsOf returns the absolute amount a basis-point figure represents
// at the given price, price * bps / 10000.
func BpsOf(price decimal.Decimal, bps int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(bps)).Div(tenThousand)
}

// QuoteFor derives a bid/ask quote from the instrument's live price using
// a spread in basis points: bid = price - spread/2, ask = price + spread/2.
func QuoteFor(in Instrument, spreadBps int64, at time.Time) Quote {
	half := BpsOf(in.Price, spreadBps).Div(two)
	return Quote{
		Symbol: in.Symbol,
		Bid:    in.Price.Sub(half),
		Ask:    in.Price.Add(half),
		Last:   in.Price,
		At:     at,
	}
}
