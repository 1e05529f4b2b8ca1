package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/foxzi/reachgate/internal/admission"
	"github.com/foxzi/reachgate/internal/client"
)

// handleBalance handles GET /wallet/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.store.Balance(r.Context())
	if err != nil {
		s.sendStoreError(w, err, "Failed to read balance")
		return
	}

	s.sendJSON(w, http.StatusOK, client.BalanceResponse{Balance: balance})
}

// handleTopUp handles POST /wallet/topup
func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request) {
	var req client.TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := s.store.TopUp(r.Context(), req.Amount)
	if err != nil {
		s.sendStoreError(w, err, "Failed to top up wallet")
		return
	}

	s.logger.Info("wallet topped up", "amount", req.Amount.String(), "balance", balance.String())
	s.sendJSON(w, http.StatusOK, client.BalanceResponse{Balance: balance})
}

// handleCredits handles GET /reboost/credits
func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := s.store.Credits(r.Context())
	if err != nil {
		s.sendStoreError(w, err, "Failed to read credits")
		return
	}

	s.sendJSON(w, http.StatusOK, client.CreditsResponse{Credits: credits})
}

// handleReboostCheck handles POST /reboost/check
func (s *Server) handleReboostCheck(w http.ResponseWriter, r *http.Request) {
	var req client.ReboostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := checkRecipients(req.RecipientCount); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}

	credits, err := s.store.Credits(r.Context())
	if err != nil {
		s.sendStoreError(w, err, "Failed to read credits")
		return
	}

	s.sendJSON(w, http.StatusOK, client.ReboostResponse{
		ReboostDecision: admission.CheckReboostAdmission(req.RecipientCount, credits),
		Credits:         credits,
	})
}

// handleEstimate handles POST /campaigns/estimate
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req client.EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, n := range []int{req.RecipientCount, req.Additional} {
		if msg := checkRecipients(n); msg != "" {
			s.sendError(w, http.StatusBadRequest, msg)
			return
		}
	}

	recipients := req.RecipientCount
	if req.SegmentID != "" {
		n, err := s.store.CountSaved(r.Context(), req.SegmentID)
		if err != nil {
			s.sendStoreError(w, err, "Failed to count segment")
			return
		}
		recipients = n
	}

	balance, err := s.store.Balance(r.Context())
	if err != nil {
		s.sendStoreError(w, err, "Failed to read balance")
		return
	}

	resp := client.EstimateResponse{
		Estimate: admission.Quote(recipients, balance, s.pricing),
	}
	if req.BudgetCap != nil {
		decision := admission.CheckBudgetCap(recipients, req.Additional, s.pricing, *req.BudgetCap)
		resp.Budget = &decision
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// checkRecipients returns a client error message for an unusable recipient count
func checkRecipients(n int) string {
	switch {
	case n < 0:
		return "recipient counts must not be negative"
	case n > admission.MaxRecipients:
		return fmt.Sprintf("recipient counts must not exceed %d", admission.MaxRecipients)
	}
	return ""
}
