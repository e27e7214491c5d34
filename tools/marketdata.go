package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// MarketData fetches price history and company fundamentals from the
// Yahoo Finance public endpoints. No API key required.
type MarketData struct {
	client  *http.Client
	baseURL string
}

// NewMarketData creates a market data adapter
func NewMarketData() *MarketData {
	return &MarketData{
		client:  newHTTPClient(30 * time.Second),
		baseURL: yahooBaseURL,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Symbol   string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type stockSnapshot struct {
	Ticker        string       `json:"ticker"`
	Period        string       `json:"period"`
	CurrentPrice  float64      `json:"current_price"`
	High52Week    float64      `json:"52_week_high"`
	Low52Week     float64      `json:"52_week_low"`
	AverageVolume int64        `json:"average_volume"`
	PriceChanges  priceChanges `json:"price_changes"`
	DataPoints    int          `json:"data_points"`
	DateRange     dateRange    `json:"date_range"`
	Recent30Day   recentStats  `json:"recent_30d_stats"`
}

type priceChanges struct {
	OneDayPct   float64 `json:"1_day_pct"`
	FiveDayPct  float64 `json:"5_day_pct"`
	OneMonthPct float64 `json:"1_month_pct"`
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type recentStats struct {
	CloseMean  float64 `json:"close_mean"`
	CloseStd   float64 `json:"close_std"`
	VolumeMean int64   `json:"volume_mean"`
}

// StockData fetches historical prices for ticker over period (1d, 5d,
// 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max) and derives the key metrics:
// current price, 52-week range, average volume and short-horizon percent
// changes. Returns indented JSON. A symbol the provider does not know
// yields a JSON error object, not an error: the text flows downstream
// so the analysis can state that no data was found.
func (m *MarketData) StockData(ctx context.Context, ticker, period string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if period == "" {
		period = "1y"
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		m.baseURL, url.PathEscape(ticker), url.QueryEscape(period))

	body, status, err := m.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("stock data request failed: %w", err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		if status != http.StatusOK {
			return "", fmt.Errorf("stock data request failed with status %d", status)
		}
		return "", fmt.Errorf("failed to parse stock data response: %w", err)
	}

	if chart.Chart.Error != nil || len(chart.Chart.Result) == 0 {
		return lookupErrorJSON(
			fmt.Sprintf("No data found for ticker: %s", ticker),
			ticker,
			"Please verify the ticker symbol is correct",
		), nil
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 || len(result.Timestamp) == 0 {
		return lookupErrorJSON(
			fmt.Sprintf("No data found for ticker: %s", ticker),
			ticker,
			"Please verify the ticker symbol is correct",
		), nil
	}

	quote := result.Indicators.Quote[0]

	// Drop rows with missing closes (holidays, half sessions)
	var (
		timestamps []int64
		highs      []float64
		lows       []float64
		closes     []float64
		volumes    []float64
	)
	for i, c := range quote.Close {
		if c == nil || i >= len(result.Timestamp) {
			continue
		}
		timestamps = append(timestamps, result.Timestamp[i])
		closes = append(closes, *c)
		if i < len(quote.High) && quote.High[i] != nil {
			highs = append(highs, *quote.High[i])
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			lows = append(lows, *quote.Low[i])
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volumes = append(volumes, *quote.Volume[i])
		}
	}

	if len(closes) == 0 {
		return lookupErrorJSON(
			fmt.Sprintf("No data found for ticker: %s", ticker),
			ticker,
			"Please verify the ticker symbol is correct",
		), nil
	}

	n := len(closes)
	current := closes[n-1]

	snapshot := stockSnapshot{
		Ticker:        ticker,
		Period:        period,
		CurrentPrice:  round2(current),
		High52Week:    round2(maxOf(highs)),
		Low52Week:     round2(minOf(lows)),
		AverageVolume: int64(meanOf(volumes)),
		PriceChanges: priceChanges{
			OneDayPct:   round2(pctChange(current, closes, n, 2)),
			FiveDayPct:  round2(pctChange(current, closes, n, 5)),
			OneMonthPct: round2(pctChange(current, closes, n, 22)),
		},
		DataPoints: n,
		DateRange: dateRange{
			Start: time.Unix(timestamps[0], 0).UTC().Format("2006-01-02"),
			End:   time.Unix(timestamps[len(timestamps)-1], 0).UTC().Format("2006-01-02"),
		},
	}

	// Last 30 sessions for the recent statistics block
	recentCloses := closes
	if len(recentCloses) > 30 {
		recentCloses = recentCloses[len(recentCloses)-30:]
	}
	recentVolumes := volumes
	if len(recentVolumes) > 30 {
		recentVolumes = recentVolumes[len(recentVolumes)-30:]
	}
	snapshot.Recent30Day = recentStats{
		CloseMean:  round2(meanOf(recentCloses)),
		CloseStd:   round2(stddevOf(recentCloses)),
		VolumeMean: int64(meanOf(recentVolumes)),
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal stock data: %w", err)
	}
	return string(data), nil
}

// yahooValue is Yahoo's {raw, fmt} number wrapper. Raw is nil when the
// provider has no value for the field.
type yahooValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

func (v yahooValue) orNA() any {
	if v.Raw == nil {
		return "N/A"
	}
	return *v.Raw
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile *struct {
				LongBusinessSummary string   `json:"longBusinessSummary"`
				Sector              string   `json:"sector"`
				Industry            string   `json:"industry"`
				Country             string   `json:"country"`
				Website             string   `json:"website"`
				FullTimeEmployees   *float64 `json:"fullTimeEmployees"`
			} `json:"assetProfile"`
			Price *struct {
				LongName           string     `json:"longName"`
				RegularMarketPrice yahooValue `json:"regularMarketPrice"`
				MarketCap          yahooValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail *struct {
				TrailingPE    yahooValue `json:"trailingPE"`
				PriceToSales  yahooValue `json:"priceToSalesTrailing12Months"`
				DividendRate  yahooValue `json:"dividendRate"`
				DividendYield yahooValue `json:"dividendYield"`
				PayoutRatio   yahooValue `json:"payoutRatio"`
			} `json:"summaryDetail"`
			FinancialData *struct {
				CurrentPrice            yahooValue `json:"currentPrice"`
				TargetHighPrice         yahooValue `json:"targetHighPrice"`
				TargetLowPrice          yahooValue `json:"targetLowPrice"`
				TargetMeanPrice         yahooValue `json:"targetMeanPrice"`
				ProfitMargins           yahooValue `json:"profitMargins"`
				OperatingMargins        yahooValue `json:"operatingMargins"`
				ReturnOnEquity          yahooValue `json:"returnOnEquity"`
				ReturnOnAssets          yahooValue `json:"returnOnAssets"`
				RevenueGrowth           yahooValue `json:"revenueGrowth"`
				EarningsGrowth          yahooValue `json:"earningsGrowth"`
				TotalRevenue            yahooValue `json:"totalRevenue"`
				GrossProfits            yahooValue `json:"grossProfits"`
				Ebitda                  yahooValue `json:"ebitda"`
				TotalCash               yahooValue `json:"totalCash"`
				TotalDebt               yahooValue `json:"totalDebt"`
				FreeCashflow            yahooValue `json:"freeCashflow"`
				RecommendationKey       string     `json:"recommendationKey"`
				NumberOfAnalystOpinions yahooValue `json:"numberOfAnalystOpinions"`
			} `json:"financialData"`
			DefaultKeyStatistics *struct {
				EnterpriseValue   yahooValue `json:"enterpriseValue"`
				ForwardPE         yahooValue `json:"forwardPE"`
				PegRatio          yahooValue `json:"pegRatio"`
				PriceToBook       yahooValue `json:"priceToBook"`
				NetIncomeToCommon yahooValue `json:"netIncomeToCommon"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type companyProfile struct {
	Ticker          string             `json:"ticker"`
	CompanyName     any                `json:"company_name"`
	BusinessSummary any                `json:"business_summary"`
	Sector          any                `json:"sector"`
	Industry        any                `json:"industry"`
	Country         any                `json:"country"`
	Website         any                `json:"website"`
	Employees       any                `json:"employees"`
	MarketData      profileMarket      `json:"market_data"`
	ValuationRatios profileValuation   `json:"valuation_ratios"`
	Profitability   profileMargins     `json:"profitability"`
	Growth          profileGrowth      `json:"growth"`
	Dividends       profileDividends   `json:"dividends"`
	Financials      profileFinancials  `json:"financials"`
	Recommendations profileRecommended `json:"analyst_recommendations"`
}

type profileMarket struct {
	MarketCap       any `json:"market_cap"`
	EnterpriseValue any `json:"enterprise_value"`
	CurrentPrice    any `json:"current_price"`
	TargetHighPrice any `json:"target_high_price"`
	TargetLowPrice  any `json:"target_low_price"`
	TargetMeanPrice any `json:"target_mean_price"`
}

type profileValuation struct {
	PERatio      any `json:"pe_ratio"`
	ForwardPE    any `json:"forward_pe"`
	PEGRatio     any `json:"peg_ratio"`
	PriceToBook  any `json:"price_to_book"`
	PriceToSales any `json:"price_to_sales"`
}

type profileMargins struct {
	ProfitMargin    any `json:"profit_margin"`
	OperatingMargin any `json:"operating_margin"`
	ReturnOnEquity  any `json:"return_on_equity"`
	ReturnOnAssets  any `json:"return_on_assets"`
}

type profileGrowth struct {
	RevenueGrowth  any `json:"revenue_growth"`
	EarningsGrowth any `json:"earnings_growth"`
}

type profileDividends struct {
	DividendRate  any `json:"dividend_rate"`
	DividendYield any `json:"dividend_yield"`
	PayoutRatio   any `json:"payout_ratio"`
}

type profileFinancials struct {
	TotalRevenue any `json:"total_revenue"`
	GrossProfit  any `json:"gross_profit"`
	EBITDA       any `json:"ebitda"`
	NetIncome    any `json:"net_income"`
	TotalCash    any `json:"total_cash"`
	TotalDebt    any `json:"total_debt"`
	FreeCashFlow any `json:"free_cash_flow"`
}

type profileRecommended struct {
	Recommendation   any `json:"recommendation"`
	NumberOfAnalysts any `json:"number_of_analysts"`
}

// CompanyInfo fetches the company profile: business description, sector,
// market data, valuation ratios, profitability, growth, dividends and
// analyst recommendations. Missing fields are reported as "N/A".
func (m *MarketData) CompanyInfo(ctx context.Context, ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		m.baseURL, url.PathEscape(ticker),
		url.QueryEscape("assetProfile,price,summaryDetail,financialData,defaultKeyStatistics"))

	body, status, err := m.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("company info request failed: %w", err)
	}

	var summary quoteSummaryResponse
	if err := json.Unmarshal(body, &summary); err != nil {
		if status != http.StatusOK {
			return "", fmt.Errorf("company info request failed with status %d", status)
		}
		return "", fmt.Errorf("failed to parse company info response: %w", err)
	}

	if summary.QuoteSummary.Error != nil || len(summary.QuoteSummary.Result) == 0 {
		return lookupErrorJSON(
			fmt.Sprintf("No company info found for ticker: %s", ticker),
			ticker,
			"Please verify the ticker symbol is correct",
		), nil
	}

	r := summary.QuoteSummary.Result[0]

	profile := companyProfile{
		Ticker:          ticker,
		CompanyName:     "N/A",
		BusinessSummary: "No description available",
		Sector:          "N/A",
		Industry:        "N/A",
		Country:         "N/A",
		Website:         "N/A",
		Employees:       "N/A",
		MarketData: profileMarket{
			MarketCap: "N/A", EnterpriseValue: "N/A", CurrentPrice: "N/A",
			TargetHighPrice: "N/A", TargetLowPrice: "N/A", TargetMeanPrice: "N/A",
		},
		ValuationRatios: profileValuation{
			PERatio: "N/A", ForwardPE: "N/A", PEGRatio: "N/A",
			PriceToBook: "N/A", PriceToSales: "N/A",
		},
		Profitability: profileMargins{
			ProfitMargin: "N/A", OperatingMargin: "N/A",
			ReturnOnEquity: "N/A", ReturnOnAssets: "N/A",
		},
		Growth:    profileGrowth{RevenueGrowth: "N/A", EarningsGrowth: "N/A"},
		Dividends: profileDividends{DividendRate: "N/A", DividendYield: "N/A", PayoutRatio: "N/A"},
		Financials: profileFinancials{
			TotalRevenue: "N/A", GrossProfit: "N/A", EBITDA: "N/A", NetIncome: "N/A",
			TotalCash: "N/A", TotalDebt: "N/A", FreeCashFlow: "N/A",
		},
		Recommendations: profileRecommended{Recommendation: "N/A", NumberOfAnalysts: "N/A"},
	}

	if p := r.AssetProfile; p != nil {
		if p.LongBusinessSummary != "" {
			profile.BusinessSummary = p.LongBusinessSummary
		}
		profile.Sector = strOrNA(p.Sector)
		profile.Industry = strOrNA(p.Industry)
		profile.Country = strOrNA(p.Country)
		profile.Website = strOrNA(p.Website)
		if p.FullTimeEmployees != nil {
			profile.Employees = int64(*p.FullTimeEmployees)
		}
	}

	if p := r.Price; p != nil {
		profile.CompanyName = strOrNA(p.LongName)
		profile.MarketData.MarketCap = p.MarketCap.orNA()
	}

	if d := r.SummaryDetail; d != nil {
		profile.ValuationRatios.PERatio = d.TrailingPE.orNA()
		profile.ValuationRatios.PriceToSales = d.PriceToSales.orNA()
		profile.Dividends.DividendRate = d.DividendRate.orNA()
		profile.Dividends.DividendYield = d.DividendYield.orNA()
		profile.Dividends.PayoutRatio = d.PayoutRatio.orNA()
	}

	if f := r.FinancialData; f != nil {
		profile.MarketData.CurrentPrice = f.CurrentPrice.orNA()
		profile.MarketData.TargetHighPrice = f.TargetHighPrice.orNA()
		profile.MarketData.TargetLowPrice = f.TargetLowPrice.orNA()
		profile.MarketData.TargetMeanPrice = f.TargetMeanPrice.orNA()
		profile.Profitability.ProfitMargin = f.ProfitMargins.orNA()
		profile.Profitability.OperatingMargin = f.OperatingMargins.orNA()
		profile.Profitability.ReturnOnEquity = f.ReturnOnEquity.orNA()
		profile.Profitability.ReturnOnAssets = f.ReturnOnAssets.orNA()
		profile.Growth.RevenueGrowth = f.RevenueGrowth.orNA()
		profile.Growth.EarningsGrowth = f.EarningsGrowth.orNA()
		profile.Financials.TotalRevenue = f.TotalRevenue.orNA()
		profile.Financials.GrossProfit = f.GrossProfits.orNA()
		profile.Financials.EBITDA = f.Ebitda.orNA()
		profile.Financials.TotalCash = f.TotalCash.orNA()
		profile.Financials.TotalDebt = f.TotalDebt.orNA()
		profile.Financials.FreeCashFlow = f.FreeCashflow.orNA()
		profile.Recommendations.Recommendation = strOrNA(f.RecommendationKey)
		profile.Recommendations.NumberOfAnalysts = f.NumberOfAnalystOpinions.orNA()
	}

	if s := r.DefaultKeyStatistics; s != nil {
		profile.MarketData.EnterpriseValue = s.EnterpriseValue.orNA()
		profile.ValuationRatios.ForwardPE = s.ForwardPE.orNA()
		profile.ValuationRatios.PEGRatio = s.PegRatio.orNA()
		profile.ValuationRatios.PriceToBook = s.PriceToBook.orNA()
		profile.Financials.NetIncome = s.NetIncomeToCommon.orNA()
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal company info: %w", err)
	}
	return string(data), nil
}

// get performs a GET with the browser User-Agent and returns the body
func (m *MarketData) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func strOrNA(s string) any {
	if s == "" {
		return "N/A"
	}
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func maxOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// stddevOf returns the sample standard deviation
func stddevOf(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := meanOf(vals)
	var sum float64
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

// pctChange computes the percent change between the close `back` sessions
// ago and the current price. Mirrors negative indexing: back=2 compares
// against the previous session's close.
func pctChange(current float64, closes []float64, n, back int) float64 {
	if n < back {
		return 0
	}
	base := closes[n-back]
	if base == 0 {
		return 0
	}
	return (current - base) / base * 100
}
