package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/modelport/modelport/internal/application"
	"github.com/modelport/modelport/internal/data/models"
	mperrors "github.com/modelport/modelport/internal/errors"
	"github.com/modelport/modelport/internal/ports"
	mptypes "github.com/modelport/modelport/internal/types"
)

const (
	routePrefix          = "/api/1.0/"
	headerIdempotencyKey = "X-Idempotency-Key"
	maxRequestBodyBytes  = 1 << 20
)

// Handler is the endpoint control-plane HTTP surface. Routes:
//
//	GET    /health/self
//	GET    /api/1.0/{env}/endpoints
//	POST   /api/1.0/{env}/endpoints
//	GET    /api/1.0/{env}/endpoints/{name}
//	DELETE /api/1.0/{env}/endpoints/{name}
type Handler struct {
	endpoints   *application.EndpointService
	idempotency ports.IdempotencyKeyStore
}

func NewHandler(endpoints *application.EndpointService, idempotency ports.IdempotencyKeyStore) *Handler {
	return &Handler{endpoints: endpoints, idempotency: idempotency}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health/self" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	env, name, ok := parseRoute(r.URL.Path)
	if !ok {
		writeErr(w, http.StatusNotFound, errors.New("unknown route"))
		return
	}
	if !mptypes.IsSupportedPoolEnv(env) {
		writeErr(w, http.StatusBadRequest, mperrors.ErrUnsupportedEnv)
		return
	}

	switch {
	case name == "" && r.Method == http.MethodGet:
		h.listEndpoints(w, r, env)
	case name == "" && r.Method == http.MethodPost:
		h.createEndpoint(w, r, env)
	case name != "" && r.Method == http.MethodGet:
		h.getEndpoint(w, r, env, name)
	case name != "" && r.Method == http.MethodDelete:
		h.deleteEndpoint(w, r, env, name)
	default:
		writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

// parseRoute extracts ({env}, {name}) from /api/1.0/{env}/endpoints[/{name}].
// The name segment is empty for the collection routes.
func parseRoute(path string) (env, name string, ok bool) {
	if !strings.HasPrefix(path, routePrefix) {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, routePrefix), "/"), "/")
	if len(parts) < 2 || parts[1] != "endpoints" {
		return "", "", false
	}
	switch len(parts) {
	case 2:
		return parts[0], "", true
	case 3:
		if parts[2] == "" {
			return "", "", false
		}
		return parts[0], parts[2], true
	default:
		return "", "", false
	}
}

func (h *Handler) listEndpoints(w http.ResponseWriter, r *http.Request, env string) {
	filter := listFilterFromQuery(r.URL.Query().Get("state"), r.URL.Query().Get("instance_type"))
	records, err := h.endpoints.List(r.Context(), env, filter)
	if err != nil {
		writeErrMapped(w, err)
		return
	}
	views := make([]EndpointView, 0, len(records))
	for _, record := range records {
		views = append(views, viewOf(record))
	}
	writeJSON(w, http.StatusOK, ListEndpointsResponse{Endpoints: views})
}

func (h *Handler) createEndpoint(w http.ResponseWriter, r *http.Request, env string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	requestHash := hashBody(body)
	if idemKey != "" {
		replayed, err := h.replayIdempotent(w, r, env, idemKey, requestHash)
		if err != nil {
			writeErrMapped(w, err)
			return
		}
		if replayed {
			return
		}
	}

	var req CreateEndpointRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	record, err := h.endpoints.Deploy(r.Context(), env, req.descriptor())
	if err != nil {
		writeErrMapped(w, err)
		return
	}

	// The record is PENDING here; the launch completes asynchronously and
	// callers poll the status route.
	status := http.StatusAccepted
	responseBody, merr := json.Marshal(viewOf(record))
	if merr != nil {
		writeErr(w, http.StatusInternalServerError, merr)
		return
	}
	if idemKey != "" {
		h.storeIdempotent(r, env, idemKey, requestHash, status, responseBody)
	}
	writeRaw(w, status, responseBody)
}

func (h *Handler) getEndpoint(w http.ResponseWriter, r *http.Request, env, name string) {
	record, err := h.endpoints.Get(r.Context(), env, name)
	if err != nil {
		writeErrMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(record))
}

func (h *Handler) deleteEndpoint(w http.ResponseWriter, r *http.Request, env, name string) {
	record, err := h.endpoints.Teardown(r.Context(), env, name)
	if err != nil {
		writeErrMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(record))
}

// replayIdempotent serves the stored response for a previously seen key.
// Reuse of a key with a different request body is rejected.
func (h *Handler) replayIdempotent(w http.ResponseWriter, r *http.Request, env, key, requestHash string) (bool, error) {
	record, err := h.idempotency.Get(r.Context(), idempotencyScope(env), key)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	if record.RequestHash != requestHash {
		return false, mperrors.ErrIdempotencyMismatch
	}
	log.Info().Str("env", env).Str("idempotency_key", key).Msg("replaying idempotent response")
	writeRaw(w, record.StatusCode, record.ResponseBody)
	return true, nil
}

func (h *Handler) storeIdempotent(r *http.Request, env, key, requestHash string, status int, body []byte) {
	err := h.idempotency.Put(r.Context(), idempotencyScope(env), key, models.IdempotencyRecord{
		RequestHash:  requestHash,
		StatusCode:   status,
		ResponseBody: body,
		ContentType:  "application/json",
	})
	if err != nil {
		log.Error().Err(err).Str("idempotency_key", key).Msg("failed to store idempotency record")
	}
}

func idempotencyScope(env string) string {
	return env + "/endpoints"
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, raw)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeErrMapped(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mperrors.ErrNotFound):
		writeErr(w, http.StatusNotFound, err)
	case errors.Is(err, mperrors.ErrAlreadyExists),
		errors.Is(err, mperrors.ErrInvalidState),
		errors.Is(err, mperrors.ErrCASConflict),
		errors.Is(err, mperrors.ErrIdempotencyMismatch):
		writeErr(w, http.StatusConflict, err)
	case errors.Is(err, mperrors.ErrInvalidRequest),
		errors.Is(err, mperrors.ErrUnsupportedEnv),
		errors.Is(err, mperrors.ErrUnknownInstanceType),
		errors.Is(err, mperrors.ErrUnknownAccelerator):
		writeErr(w, http.StatusBadRequest, err)
	default:
		log.Error().Err(err).Msg("request failed")
		writeErr(w, http.StatusInternalServerError, err)
	}
}
