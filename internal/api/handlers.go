package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/llm"
	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/Veraticus/digital-twin/internal/propensity"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

const (
	defaultLimit = 20
	maxLimit     = 500
	maxBodyBytes = 1 << 20
)

type simulateRequest struct {
	Params      *json.RawMessage `json:"params,omitempty"`
	Filter      *json.RawMessage `json:"filter,omitempty"`
	Description string           `json:"description,omitempty"`
	Limit       int              `json:"limit,omitempty"`
}

type simulateResponse struct {
	RunID    string               `json:"run_id"`
	Params   simulation.Params    `json:"params"`
	Filter   campaign.Filter      `json:"filter"`
	Summary  simulation.Summary   `json:"summary"`
	Records  []model.ScoredRecord `json:"records"`
	Warnings []string             `json:"warnings,omitempty"`
	Parse    *llm.ParseResult     `json:"parse,omitempty"`
	Duration string               `json:"duration"`
}

type parseRequest struct {
	Description string `json:"description"`
}

type catalogField struct {
	Name   string   `json:"name"`
	List   bool     `json:"list"`
	Values []string `json:"values,omitempty"`
}

type catalogResponse struct {
	Fields    []catalogField   `json:"fields"`
	Models    []string         `json:"models"`
	Labels    []string         `json:"labels"`
	Responses []model.Response `json:"responses"`
	Defaults  campaign.Filter  `json:"defaults"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	params := s.defaults
	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid params: %w", err))
			return
		}
	}

	var parsed *llm.ParseResult
	filter := campaign.Empty()
	switch {
	case req.Filter != nil:
		if err := json.Unmarshal(*req.Filter, &filter); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid filter: %w", err))
			return
		}
		if err := filter.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	case strings.TrimSpace(req.Description) != "":
		result, status, err := s.parse(r, req.Description)
		if err != nil {
			writeError(w, status, err)
			return
		}
		parsed = &result
		filter = result.Filter
	}

	result, err := s.sim.Run(r.Context(), params, filter)
	if err != nil {
		s.logger.Error("Simulation failed", "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	s.runs.add(result)

	writeJSON(w, http.StatusOK, simulateResponse{
		RunID:    result.RunID,
		Params:   result.Params,
		Filter:   result.Filter,
		Summary:  result.Summary,
		Records:  result.Top(clampLimit(req.Limit)),
		Warnings: result.Warnings,
		Parse:    parsed,
		Duration: result.Duration.String(),
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, status, err := s.parse(r, req.Description)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) parse(r *http.Request, description string) (llm.ParseResult, int, error) {
	if s.parser == nil {
		return llm.ParseResult{}, http.StatusServiceUnavailable, errors.New("campaign parsing is not configured")
	}
	result, err := s.parser.Parse(r.Context(), description)
	if err != nil {
		s.logger.Error("Campaign parsing failed", "error", err)
		return llm.ParseResult{}, http.StatusBadGateway, err
	}
	return result, http.StatusOK, nil
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	fields := make([]catalogField, 0, len(campaign.Fields()))
	for _, name := range campaign.Fields() {
		fields = append(fields, catalogField{
			Name:   name,
			List:   campaign.IsList(name),
			Values: campaign.Domain(name),
		})
	}

	writeJSON(w, http.StatusOK, catalogResponse{
		Fields:    fields,
		Models:    propensity.Models(),
		Labels:    []string{propensity.LabelAffinity, propensity.LabelPastInterest},
		Responses: model.Responses(),
		Defaults:  campaign.Default(),
	})
}

func (s *Server) handleTwin(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	customerID := chi.URLParam(r, "customer_id")

	result, ok := s.runs.get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("run %q not found", runID))
		return
	}
	rec, ok := result.Find(customerID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("twin %q not found in run %q", customerID, runID))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrUnknownModel):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUpstreamParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	default:
		return n
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
