package store

import "time"

// Run is one row of the ingest run ledger
type Run struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     *time.Time
	Status         string
	RunType        string
	Scope          string
	SourceProfile  string
	PricesWindow   string
	LookbackDays   int
	PricesBackfill bool
	DryRun         bool
	SymbolsCount   int
	Notes          []string
	ErrorMessage   string
}

// OutcomeError is one captured error inside a domain outcome
type OutcomeError struct {
	Provider string `json:"provider"`
	Symbol   string `json:"symbol,omitempty"`
	Message  string `json:"message"`
}

// DomainOutcome is the per-(run, domain) result record
type DomainOutcome struct {
	RunID       string
	Domain      string
	Status      string
	RowsRead    int
	RowsWritten int
	RowsSkipped int
	Errors      []OutcomeError
	UpdatedAt   time.Time
}

// Symbol is one row of the symbol universe
type Symbol struct {
	StockCode    string
	Name         string
	Market       string
	DartCorpCode string
	ListedDate   string // YYYY-MM-DD, empty when unknown
}

// PriceRow is a normalized OHLCV candle
type PriceRow struct {
	StockCode string
	Timeframe string
	CandleAt  string // YYYY-MM-DD
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Source    string
	AsOf      string
}

// FundamentalRow is a normalized finance-ratio snapshot for one period
type FundamentalRow struct {
	StockCode    string
	Period       string // YYYYMM
	Term         string // annual, quarterly
	ROE          *float64
	EPS          *float64
	BPS          *float64
	SPS          *float64
	SalesGrowth  *float64
	ProfitGrowth *float64
	NetGrowth    *float64
	DebtRatio    *float64
	ReserveRatio *float64
	Source       string
}

// StatementRow is a normalized financial statement line item
type StatementRow struct {
	StockCode  string
	ReportType string
	Period     string // YYYYMM
	Term       string
	ItemKey    string
	ItemValue  float64
	Currency   string
	Source     string
}

// EventRow is a normalized corporate event (disclosure)
type EventRow struct {
	StockCode     string
	EventTime     string // RFC3339
	EventType     string
	Severity      int
	Headline      string
	Summary       string
	Source        string
	SourceEventID string
}

// MarginRow is a normalized margin/loan-eligibility record
type MarginRow struct {
	StockCode        string
	AsOf             string // YYYY-MM-DD
	IsFullMargin     bool
	MarginRatePct    *float64
	CollectionStatus string // collected, failed
	SourceNote       string
}
