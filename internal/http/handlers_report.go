package http

import (
	"net/http"
	"time"

	"contas/internal/log"
	"contas/internal/services"
)

// handleCashFlow projects the monthly cash-flow series for the requested
// window. Results are cached per window and invalidated by every write.
func (s *Server) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r.URL.Query(), s.projectionMonths, time.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := windowKey(from, to)
	if buckets, ok := s.flowCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Cash-flow cache hit", log.FieldWindowStart, key)
		respondJSON(w, http.StatusOK, cashFlowResponse{
			From:    from.Format(dateLayout),
			To:      to.Format(dateLayout),
			Buckets: toMonthBucketResponses(buckets),
		})
		return
	}

	txns, err := s.store.ListTransactions(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	recurring, err := s.store.ListRecurringTransactions(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	buckets, err := services.ProjectCashFlow(txns, recurring, from, to)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.flowCache.Set(key, buckets)
	respondJSON(w, http.StatusOK, cashFlowResponse{
		From:    from.Format(dateLayout),
		To:      to.Format(dateLayout),
		Buckets: toMonthBucketResponses(buckets),
	})
}

// handlePeriodStats computes the aggregate period report for the
// requested window.
func (s *Server) handlePeriodStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from, to, err := parseWindow(r.URL.Query(), s.projectionMonths, now)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := windowKey(from, to)
	if stats, ok := s.statsCache.Get(key); ok {
		s.logger.DebugContext(r.Context(), "Period-stats cache hit", log.FieldWindowStart, key)
		respondJSON(w, http.StatusOK, toPeriodStatsResponse(stats, from.Format(dateLayout), to.Format(dateLayout)))
		return
	}

	txns, err := s.store.ListTransactions(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	stats, err := services.ComputePeriodStats(txns, from, to, now)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.statsCache.Set(key, stats)
	respondJSON(w, http.StatusOK, toPeriodStatsResponse(stats, from.Format(dateLayout), to.Format(dateLayout)))
}

func windowKey(from, to time.Time) string {
	return from.Format(dateLayout) + "/" + to.Format(dateLayout)
}
