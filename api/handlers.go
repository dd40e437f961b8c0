/*
handlers.go - HTTP handlers for the dashboard REST surface

PURPOSE:
  Translates HTTP requests into the same parsed request objects the queue
  shell uses, so there is exactly one engine and one set of semantics
  behind both transports. All REST callers act in the dashboard role:
  amounts in update bodies are applied with their literal sign.

IDEMPOTENCY:
  Mutating endpoints honor an X-Request-ID header. A retried POST with the
  same header is answered from the engine's dedup cache instead of
  re-applying. Absent the header, a fresh id is generated and the call is
  treated as a new request.

ERROR HANDLING:
  Transport-level problems (unreadable body, bad JSON) map to 400. Engine
  outcomes travel inside the response object; a failed validation is still
  HTTP 200, matching the queue shell where there is no status code at all.

SEE ALSO:
  - server.go: Route setup and middleware
  - validation/engine.go: Operation semantics
*/
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brewbot/validation-engine/validation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *validation.Engine
	Log    *zap.Logger
}

// NewHandler creates a handler around the engine.
func NewHandler(engine *validation.Engine, log *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: log}
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

// Health answers liveness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, validation.FuncHealth, nil)
}

// IngredientStatus returns the classified ledger snapshot, optionally
// narrowed by ?ingredient_type= and ?subtype=.
func (h *Handler) IngredientStatus(w http.ResponseWriter, r *http.Request) {
	payload := validation.StatusPayload{
		IngredientType: r.URL.Query().Get("ingredient_type"),
		Subtype:        r.URL.Query().Get("subtype"),
	}
	h.invoke(w, r, validation.FuncIngredientStatus, payload)
}

// StockLevel returns entry counts per status level.
func (h *Handler) StockLevel(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, validation.FuncStockLevel, nil)
}

// CategorySummary returns the weakest subtype per category.
func (h *Handler) CategorySummary(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, validation.FuncCategorySummary, nil)
}

// CategoryCount returns subtype counts per category.
func (h *Handler) CategoryCount(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, validation.FuncCategoryCount, nil)
}

// =============================================================================
// MUTATING ENDPOINTS
// =============================================================================

// Refill refills the targets in the JSON body, or query-named targets, or
// the whole catalog when nothing is specified.
func (h *Handler) Refill(w http.ResponseWriter, r *http.Request) {
	payload := validation.RefillPayload{
		IngredientType: r.URL.Query().Get("ingredient_type"),
		Subtype:        r.URL.Query().Get("subtype"),
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err != io.EOF {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	h.invoke(w, r, validation.FuncRefillIngredient, payload)
}

// UpdateInventory applies signed corrections from the dashboard.
func (h *Handler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	var payload validation.UpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.invoke(w, r, validation.FuncUpdateInventory, payload)
}

// PreCheck runs the advisory feasibility check.
func (h *Handler) PreCheck(w http.ResponseWriter, r *http.Request) {
	var payload validation.PreCheckPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.invoke(w, r, validation.FuncPreCheck, payload)
}

// =============================================================================
// HELPERS
// =============================================================================

// invoke builds the parsed request object and hands it to the engine.
func (h *Handler) invoke(w http.ResponseWriter, r *http.Request, fn validation.Function, payload any) {
	raw, err := marshalPayload(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode payload")
		return
	}

	req := validation.Request{
		RequestID:  requestID(r),
		ClientType: validation.ClientDashboard,
		Function:   fn,
		Payload:    raw,
	}

	resp := h.Engine.Handle(req)
	h.Log.Info("handled request",
		zap.String("function", string(fn)),
		zap.String("request_id", req.RequestID),
	)
	writeJSON(w, http.StatusOK, resp)
}

// requestID honors a caller-supplied idempotency id, else generates one.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
