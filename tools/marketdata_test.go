package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newChartBody(timestamps []int64, closes, highs, lows, volumes []float64) string {
	quote := map[string]any{
		"open":   closes,
		"high":   highs,
		"low":    lows,
		"close":  closes,
		"volume": volumes,
	}
	body := map[string]any{
		"chart": map[string]any{
			"result": []any{
				map[string]any{
					"meta":       map[string]any{"currency": "USD", "symbol": "AAPL"},
					"timestamp":  timestamps,
					"indicators": map[string]any{"quote": []any{quote}},
				},
			},
			"error": nil,
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestStockDataMetrics(t *testing.T) {
	day := int64(86400)
	base := int64(1700000000)
	timestamps := []int64{base, base + day, base + 2*day, base + 3*day, base + 4*day}
	closes := []float64{100, 102, 101, 103, 105}
	highs := []float64{101, 103, 102, 104, 106}
	lows := []float64{99, 101, 100, 102, 104}
	volumes := []float64{1000, 2000, 1500, 2500, 3000}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/AAPL") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, newChartBody(timestamps, closes, highs, lows, volumes))
	}))
	defer srv.Close()

	md := &MarketData{client: srv.Client(), baseURL: srv.URL}

	out, err := md.StockData(context.Background(), "aapl", "1y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snap stockSnapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if snap.Ticker != "AAPL" {
		t.Errorf("expected ticker AAPL, got %s", snap.Ticker)
	}
	if snap.CurrentPrice != 105 {
		t.Errorf("expected current price 105, got %v", snap.CurrentPrice)
	}
	if snap.High52Week != 106 {
		t.Errorf("expected 52w high 106, got %v", snap.High52Week)
	}
	if snap.Low52Week != 99 {
		t.Errorf("expected 52w low 99, got %v", snap.Low52Week)
	}
	if snap.AverageVolume != 2000 {
		t.Errorf("expected average volume 2000, got %v", snap.AverageVolume)
	}
	// 1d change: (105-103)/103 = 1.94%
	if snap.PriceChanges.OneDayPct != 1.94 {
		t.Errorf("expected 1d change 1.94, got %v", snap.PriceChanges.OneDayPct)
	}
	// 5d change: (105-100)/100 = 5%
	if snap.PriceChanges.FiveDayPct != 5 {
		t.Errorf("expected 5d change 5, got %v", snap.PriceChanges.FiveDayPct)
	}
	// Fewer than 22 sessions: 1m change defaults to 0
	if snap.PriceChanges.OneMonthPct != 0 {
		t.Errorf("expected 1m change 0, got %v", snap.PriceChanges.OneMonthPct)
	}
	if snap.DataPoints != 5 {
		t.Errorf("expected 5 data points, got %d", snap.DataPoints)
	}
	if snap.DateRange.Start != "2023-11-14" || snap.DateRange.End != "2023-11-18" {
		t.Errorf("unexpected date range: %+v", snap.DateRange)
	}
	if snap.Recent30Day.CloseMean != 102.2 {
		t.Errorf("expected recent close mean 102.2, got %v", snap.Recent30Day.CloseMean)
	}
	if snap.Recent30Day.CloseStd != 1.92 {
		t.Errorf("expected recent close std 1.92, got %v", snap.Recent30Day.CloseStd)
	}
}

func TestStockDataUnknownTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer srv.Close()

	md := &MarketData{client: srv.Client(), baseURL: srv.URL}

	out, err := md.StockData(context.Background(), "NOPE", "1y")
	if err != nil {
		t.Fatalf("lookup miss should not be an error, got: %v", err)
	}

	var miss lookupError
	if err := json.Unmarshal([]byte(out), &miss); err != nil {
		t.Fatalf("expected JSON error object, got %q", out)
	}
	if !strings.Contains(miss.Error, "NOPE") {
		t.Errorf("error should name the ticker, got %q", miss.Error)
	}
	if miss.Suggestion == "" {
		t.Error("expected a suggestion for the user")
	}
}

func TestCompanyInfoMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteSummary":{"result":[{
			"assetProfile":{"sector":"Technology","industry":"Consumer Electronics","longBusinessSummary":"Designs phones."},
			"price":{"longName":"Apple Inc.","regularMarketPrice":{"raw":195.3},"marketCap":{"raw":3000000000000}}
		}],"error":null}}`)
	}))
	defer srv.Close()

	md := &MarketData{client: srv.Client(), baseURL: srv.URL}

	out, err := md.CompanyInfo(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var profile map[string]any
	if err := json.Unmarshal([]byte(out), &profile); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if profile["company_name"] != "Apple Inc." {
		t.Errorf("expected company name, got %v", profile["company_name"])
	}
	if profile["sector"] != "Technology" {
		t.Errorf("expected sector Technology, got %v", profile["sector"])
	}

	valuation, ok := profile["valuation_ratios"].(map[string]any)
	if !ok {
		t.Fatalf("missing valuation_ratios block")
	}
	if valuation["pe_ratio"] != "N/A" {
		t.Errorf("missing module fields should render as N/A, got %v", valuation["pe_ratio"])
	}

	market, ok := profile["market_data"].(map[string]any)
	if !ok {
		t.Fatalf("missing market_data block")
	}
	if market["market_cap"] != float64(3000000000000) {
		t.Errorf("expected market cap from price module, got %v", market["market_cap"])
	}
}

func TestCompanyInfoLookupMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found"}}}`)
	}))
	defer srv.Close()

	md := &MarketData{client: srv.Client(), baseURL: srv.URL}

	out, err := md.CompanyInfo(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("lookup miss should not be an error, got: %v", err)
	}
	if !strings.Contains(out, "No company info found") {
		t.Errorf("expected lookup error payload, got %q", out)
	}
}
