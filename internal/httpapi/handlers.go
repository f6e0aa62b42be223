package httpapi

import (
	"encoding/json"
	"net/http"

	svcerrors "contractor-matching/internal/common/errors"
	"contractor-matching/internal/common/validation"
	"contractor-matching/internal/models"
)

// matchRequest mirrors the POST /match body.
type matchRequest struct {
	TicketID    string                `json:"ticketId"`
	Trade       string                `json:"trade"`
	Severity    string                `json:"severity,omitempty"`
	Location    models.Location       `json:"location"`
	RadiusMiles float64               `json:"searchRadius,omitempty"`
	MaxResults  int                   `json:"maxResults,omitempty"`
	Filters     models.FilterCriteria `json:"filters,omitempty"`
	Weights     *models.ScoreWeights  `json:"weights,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	body, err := decodeValidated(r, validation.MatchRequestSchema)
	if err != nil {
		writeError(w, err)
		return
	}

	var req matchRequest
	if err := remarshal(body, &req); err != nil {
		writeError(w, svcerrors.NewInvalidRequestError(err.Error()))
		return
	}

	result, err := s.matcher.Match(r.Context(), &models.MatchingRequest{
		TicketID:    req.TicketID,
		Trade:       models.Trade(req.Trade),
		Location:    req.Location,
		RadiusMiles: req.RadiusMiles,
		MaxResults:  req.MaxResults,
		Filters:     req.Filters,
		Weights:     req.Weights,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	body, err := decodeValidated(r, validation.AcceptRequestSchema)
	if err != nil {
		writeError(w, err)
		return
	}
	contractorID, _ := body["contractorId"].(string)

	ticket, err := s.assigner.Accept(r.Context(), r.PathValue("id"), contractorID, actor(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.assigner.Start(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.assigner.Complete(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	note := ""
	if r.ContentLength > 0 {
		body, err := decodeValidated(r, validation.CancelRequestSchema)
		if err != nil {
			writeError(w, err)
			return
		}
		note, _ = body["note"].(string)
	}

	ticket, err := s.assigner.Cancel(r.Context(), r.PathValue("id"), actor(r), note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// componentHealth is one backing service's status in the health response.
type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth reports per-component status. The process answers 200 while it
// can serve at all; degraded components are listed, not fatal.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]componentHealth, len(s.health))
	status := "ok"
	for name, pinger := range s.health {
		if err := pinger.Ping(); err != nil {
			components[name] = componentHealth{Status: "degraded", Error: err.Error()}
			status = "degraded"
			continue
		}
		components[name] = componentHealth{Status: "ok"}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}

// ==========================
// Request / Response Helpers
// ==========================

// decodeValidated decodes the body into a generic map and validates it
// against the schema, so type and shape errors surface as 400s with detail.
func decodeValidated(r *http.Request, schema string) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, svcerrors.NewInvalidRequestError("malformed JSON body: " + err.Error())
	}

	result, err := validation.ValidateDocument(schema, body)
	if err != nil {
		return nil, svcerrors.NewInvalidRequestError(err.Error())
	}
	if !result.Valid {
		return nil, svcerrors.NewInvalidRequestError(validation.FormatErrors(result))
	}
	return body, nil
}

// remarshal converts the validated generic map into a typed request.
func remarshal(body map[string]interface{}, dst interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	svcErr := svcerrors.AsServiceError(err)
	writeJSON(w, svcErr.HTTPStatus(), map[string]interface{}{
		"error": svcErr,
	})
}
