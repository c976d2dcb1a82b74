package server

import (
	"encoding/json"
	"net/http"

	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/narration"
)

// analyzeRequest is the body of POST /api/analyze-eeg. UseAI defaults to true.
type analyzeRequest struct {
	Signal   []float64      `json:"signal"`
	Times    []float64      `json:"times"`
	Metadata map[string]any `json:"metadata"`
	UseAI    *bool          `json:"use_ai"`
}

func (s *Server) handleAnalyzeEEG(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		appErr := errors.InvalidInput("invalid JSON body")
		appErr.Cause = err
		s.writeError(w, r, appErr)
		return
	}
	if len(req.Signal) == 0 || len(req.Times) == 0 {
		s.writeError(w, r, errors.InvalidInput("Missing signal data"))
		return
	}

	useAI := req.UseAI == nil || *req.UseAI
	narrative, err := s.narratorFor(useAI).Narrate(r.Context(), narration.SignalSummary{
		Signal:   req.Signal,
		Times:    req.Times,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{
		Narrative: narrative,
		HTML:      narrative.HTML(),
	})
}

// analyzeResponse is the narrative plus its rendered HTML.
type analyzeResponse struct {
	*narration.Narrative
	HTML string `json:"html"`
}

// narratorFor picks the configured narrator behind a statistical fallback, or
// the statistical narrator alone.
func (s *Server) narratorFor(useAI bool) narration.Narrator {
	if useAI && s.narrator != nil {
		return narration.NewFallbackNarrator(s.narrator, s.statistical)
	}
	return s.statistical
}
