package marketinsight

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/money"
)

// Query asks how Price compares to the market for a Comparable. ListedPrice is optional.
type Query struct {
	Comparable
	Price       int64
	ListedPrice *int64
}

// Insight is the negotiation-panel view of the market.
type Insight struct {
	Make               string           `json:"make"`
	Model              string           `json:"model"`
	Year               *int             `json:"year,omitempty"`
	SoldCount          int64            `json:"sold_count"`
	AveragePrice       int64            `json:"average_price"`
	MinPrice           int64            `json:"min_price"`
	MaxPrice           int64            `json:"max_price"`
	AveragePriceLakhs  string           `json:"average_price_lakhs"`
	Price              int64            `json:"price"`
	DeltaVsListedPct   *decimal.Decimal `json:"delta_vs_listed_pct,omitempty"`
	DeltaVsMarketPct   *decimal.Decimal `json:"delta_vs_market_pct,omitempty"`
	BelowMarketAverage bool             `json:"below_market_average"`
}

// Service computes market insight.
type Service interface {
	Insight(ctx context.Context, q Query) (*Insight, error)
}

type service struct {
	repo Repository
}

// NewService returns a market insight service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "market insight repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Insight(ctx context.Context, q Query) (*Insight, error) {
	if strings.TrimSpace(q.Make) == "" || strings.TrimSpace(q.Model) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "make and model are required")
	}
	if q.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	stats, err := s.repo.SaleStats(ctx, q.Comparable)
	if err != nil {
		return nil, err
	}

	avg := decimal.NewFromFloat(stats.Average).Round(0).IntPart()
	out := &Insight{
		Make:              q.Make,
		Model:             q.Model,
		Year:              q.Year,
		SoldCount:         stats.Count,
		AveragePrice:      avg,
		MinPrice:          stats.Min,
		MaxPrice:          stats.Max,
		AveragePriceLakhs: money.RupeesToLakhs(avg),
		Price:             q.Price,
	}
	if q.Price > 0 && q.ListedPrice != nil && *q.ListedPrice > 0 {
		delta := money.PercentDelta(q.Price, *q.ListedPrice)
		out.DeltaVsListedPct = &delta
	}
	if q.Price > 0 && stats.Count > 0 && avg > 0 {
		delta := money.PercentDelta(q.Price, avg)
		out.DeltaVsMarketPct = &delta
		out.BelowMarketAverage = q.Price < avg
	}
	return out, nil
}
