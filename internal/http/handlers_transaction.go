package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/services"
)

// handleCreateTransaction records a new transaction or recurring anchor.
// The stored status is resolved by the service, so a payment date in the
// payload yields a paid row and a past due date an overdue one.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateReports()
	s.structuredLog.LogTransactionCreated(r.Context(),
		created.ID.String(), created.Description, created.Amount.Cents, string(created.Direction))
	respondJSON(w, http.StatusCreated, toTransactionResponse(created))
}

// handleGetTransaction returns a single transaction by ID.
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// handleUpdateTransaction replaces the mutable fields of a transaction.
// Status is re-resolved from the new dates unless explicitly provided.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tx.ID = id

	updated, err := s.ledger.UpdateTransaction(r.Context(), tx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateReports()
	respondJSON(w, http.StatusOK, toTransactionResponse(updated))
}

// handleListTransactions lists transactions, optionally filtered by the
// account query parameter and a from/to window on the relevant date.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		txns []core.Transaction
		err  error
	)

	query := r.URL.Query()
	if v := strings.TrimSpace(query.Get("account")); v != "" {
		accountID, parseErr := uuid.Parse(v)
		if parseErr != nil {
			respondError(w, http.StatusBadRequest, errInvalidID.Error())
			return
		}
		txns, err = s.store.ListTransactionsByAccount(r.Context(), accountID)
	} else {
		txns, err = s.store.ListTransactions(r.Context())
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if query.Has("from") || query.Has("to") {
		from, to, err := parseWindow(query, s.projectionMonths, time.Now())
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		filtered := txns[:0]
		for _, tx := range txns {
			if services.InWindow(services.RelevantDate(tx), from, to) {
				filtered = append(filtered, tx)
			}
		}
		txns = filtered
	}

	respondJSON(w, http.StatusOK, toTransactionResponses(txns))
}

// handleSettleTransaction marks a transaction paid. An empty body or a
// missing payment_date settles it as of today.
func (s *Server) handleSettleTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req settleTransactionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var paymentDate time.Time
	if req.PaymentDate != "" {
		paymentDate, err = parseDateField("payment_date", req.PaymentDate)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	tx, err := s.ledger.SettleTransaction(r.Context(), id, paymentDate)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateReports()
	s.logger.InfoContext(r.Context(), "Transaction settled",
		log.FieldTxID, tx.ID.String(),
		log.FieldStatus, string(tx.Status),
		log.FieldOperation, log.OpSettle)
	respondJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// handleReopenTransaction reverts a settled transaction to open state.
// The resulting status depends on the due date relative to today.
func (s *Server) handleReopenTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.ledger.ReopenTransaction(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateReports()
	respondJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// handleDeleteTransaction soft deletes a transaction.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

// handleTransactionOccurrences expands a recurring anchor over the
// requested window. Occurrences are computed on read, never stored.
func (s *Server) handleTransactionOccurrences(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !tx.IsRecurring() {
		respondError(w, http.StatusUnprocessableEntity, "transaction is not recurring")
		return
	}

	from, to, err := parseWindow(r.URL.Query(), s.projectionMonths, time.Now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	occurrences, err := services.Expand(tx, from, to)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOccurrenceResponses(occurrences))
}
