package models

import "time"

// EODBar represents a single end-of-day price bar
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}

// EODResponse holds end-of-day price data for one ticker
type EODResponse struct {
	Ticker string   `json:"ticker"`
	Data   []EODBar `json:"data"`
}

// ForexTicker returns the EODHD ticker for a currency pair
// (e.g. "USDEUR.FOREX" for USD quoted in EUR).
func ForexTicker(from, to string) string {
	return from + to + ".FOREX"
}
