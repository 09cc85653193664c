package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cryptoscreen/screenerd/internal/admission"
	"github.com/cryptoscreen/screenerd/internal/market"
	"github.com/cryptoscreen/screenerd/internal/obsmetrics"
	"github.com/cryptoscreen/screenerd/internal/screening"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{OK: true, TS: time.Now().UTC()}
	if s.breakers != nil {
		stats := s.breakers.Stats()
		body.Providers = make(map[string]bool, len(stats))
		for _, st := range stats {
			body.Providers[st.Name] = st.Healthy
			if s.metrics != nil {
				s.metrics.CircuitState.WithLabelValues(st.Name).Set(obsmetrics.CircuitStateValue(st.State.String()))
			}
			if !st.Healthy {
				body.OK = false
			}
		}
	}
	_ = writeJSON(w, body)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusInternalServerError, errorBody{Error: "INTERNAL_ERROR", Message: "metrics not configured"})
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleSupportedSymbols(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, supportedSymbolsBody{Symbols: s.supported})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: "VALIDATION_ERROR", Message: "malformed JSON body", Details: err.Error()})
		return
	}

	for _, sym := range body.Symbols {
		if fail := admission.ValidateSymbolParam(sym); fail != admission.FailureNone {
			if s.admission != nil {
				s.admission.RecordValidationFailure(r)
			}
			writeError(w, http.StatusBadRequest, errorBody{Error: "VALIDATION_ERROR", Message: "invalid symbol", Details: string(fail)})
			return
		}
	}

	req := screening.Request{
		Symbols:       body.Symbols,
		Timeframe:     market.Timeframe(body.Timeframe),
		Limit:         body.Limit,
		EnabledLayers: body.EnabledLayers,
	}

	resp, err := s.engine.Run(r.Context(), req)
	if err != nil {
		if screening.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, errorBody{Error: "VALIDATION_ERROR", Message: "request failed schema validation", Details: err.Error()})
			return
		}
		writeError(w, http.StatusInternalServerError, errorBody{Error: "INTERNAL_ERROR", Message: "screening run failed"})
		return
	}

	_ = writeJSON(w, responseToDTO(resp))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]
	if s.engine.RunCache == nil {
		writeError(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: "no such run"})
		return
	}
	resp, ok := s.engine.RunCache.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: "no such run"})
		return
	}
	_ = writeJSON(w, responseToDTO(resp))
}
