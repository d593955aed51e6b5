package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ipfs-force-community/rebalance-gateway/aiclient"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	var req aiclient.RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("AI prediction error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"Failed to fetch AI predictions", err.Error()})
		return
	}
	// an empty allocation object is forwarded, only a missing one is rejected
	if req.Allocation == nil || len(req.Strategy) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing allocation or strategy"})
		return
	}

	res, err := s.ai.Rebalance(r.Context(), &req)
	if err != nil {
		log.Errorf("AI prediction error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"Failed to fetch AI predictions", err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) strategies(w http.ResponseWriter, r *http.Request) {
	res, err := s.ai.Strategies(r.Context())
	if err != nil {
		log.Errorf("Failed to fetch AI strategies: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{"Failed to fetch AI-defined strategies", err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
