package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/dealerhub-backend/api/responses"
	"github.com/angelmondragon/dealerhub-backend/api/validators"
	"github.com/angelmondragon/dealerhub-backend/internal/marketinsight"
	pkgerrors "github.com/angelmondragon/dealerhub-backend/pkg/errors"
	"github.com/angelmondragon/dealerhub-backend/pkg/logger"
	"github.com/angelmondragon/dealerhub-backend/pkg/money"
)

// MarketInsight compares a price with completed sales of the same make and model.
// Prices are accepted in rupees (price) or lakhs (price_lakhs).
func MarketInsight(svc marketinsight.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("market insight service"))
			return
		}
		q := r.URL.Query()
		query := marketinsight.Query{
			Comparable: marketinsight.Comparable{
				Make:  validators.SanitizeString(q.Get("make"), 64),
				Model: validators.SanitizeString(q.Get("model"), 64),
			},
		}
		if raw := strings.TrimSpace(q.Get("year")); raw != "" {
			year, err := validators.ParseQueryInt(r, "year", 0, 1950, 2100)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			query.Year = &year
		}

		price, err := rupeesParam(r, "price", "price_lakhs")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query.Price = price

		listed, err := rupeesParam(r, "listed_price", "listed_price_lakhs")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if listed > 0 {
			query.ListedPrice = &listed
		}

		insight, err := svc.Insight(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, insight)
	}
}

func rupeesParam(r *http.Request, rupeesKey, lakhsKey string) (int64, error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get(lakhsKey)); raw != "" {
		value, err := money.LakhsToRupees(raw)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+lakhsKey)
		}
		return value, nil
	}
	raw := strings.TrimSpace(q.Get(rupeesKey))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, rupeesKey+" must be a non-negative integer")
	}
	return value, nil
}
