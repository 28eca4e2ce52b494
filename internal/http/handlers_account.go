package http

import (
	"net/http"

	"contas/internal/services"
)

// handleCreateAccount registers a new account.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toAccountResponse(account))
}

// handleListAccounts returns every account, active and inactive.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponses(accounts))
}

// handleDeactivateAccount flags an account inactive while keeping its
// transactions and derived balance.
func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.DeactivateAccount(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAccount removes an account without transactions.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

// handleAccountBalance derives the balance from the account's settled
// transactions. Balances are never stored.
func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.GetAccount(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	txns, err := s.store.ListTransactionsByAccount(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	balance := services.Balance(id, txns)
	respondJSON(w, http.StatusOK, balanceResponse{
		AccountID:    id.String(),
		Balance:      balance.String(),
		BalanceCents: balance.Cents,
	})
}
