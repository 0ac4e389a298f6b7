package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jdotsun/hierarchical-config-demo/internal/coercion"
	"github.com/jdotsun/hierarchical-config-demo/internal/model"
	"github.com/jdotsun/hierarchical-config-demo/internal/resolver"
	"github.com/jdotsun/hierarchical-config-demo/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxBodyBytes = 1 << 20

// Handler wires the storage overlays and the resolver into HTTP handlers.
type Handler struct {
	storage  *storage.Storage
	resolver resolver.Resolver
	logger   *zap.Logger

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithHandlerLogger sets the logger used for failed writes.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store *storage.Storage, res resolver.Resolver, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage:  store,
		resolver: res,
		logger:   zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	})
}

func (h *Handler) handleListScopeTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.Scopes().List(r.Context()))
}

func (h *Handler) handleListConfigItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.Items().List(r.Context()))
}

func (h *Handler) handleCreateConfigItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Key == "" || req.ValueType == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields", "key and value_type are required")
		return
	}

	item := model.ConfigItem{
		Key:         req.Key,
		Description: req.Description,
		ValueType:   model.ValueType(req.ValueType),
	}
	created, err := h.storage.Items().Add(r.Context(), item)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if created {
		writeJSON(w, http.StatusCreated, item)
		return
	}

	existing, ok := h.storage.Items().Get(r.Context(), item.Key)
	if !ok {
		writeError(w, http.StatusConflict, "Config item changed concurrently", fmt.Sprintf("config item %q was deleted while being created", item.Key))
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (h *Handler) handleDeleteConfigItem(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	removed, err := h.storage.Items().Delete(r.Context(), key)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Config item not found", fmt.Sprintf("no config item %q", key))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListConfigValues(w http.ResponseWriter, r *http.Request) {
	var values []model.ConfigValue
	if key := strings.TrimSpace(r.URL.Query().Get("config_item_key")); key != "" {
		values = h.storage.Values().ListForItem(r.Context(), key)
	} else {
		values = h.storage.Values().List(r.Context())
	}

	out := make([]configValueResponse, len(values))
	for i, v := range values {
		out[i] = newConfigValueResponse(v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleSetConfigValue(w http.ResponseWriter, r *http.Request) {
	var req setValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ConfigItemKey == "" || req.ScopeType == "" || len(req.Value) == 0 {
		writeError(w, http.StatusBadRequest, "Missing required fields", "config_item_key, scope_type and value are required")
		return
	}

	raw, err := rawValue(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid value", err.Error())
		return
	}

	value := model.ConfigValue{
		ConfigItemKey: req.ConfigItemKey,
		ScopeType:     req.ScopeType,
		ScopeValue:    derefString(req.ScopeValue),
		Value:         raw,
	}
	if err := h.storage.Values().Set(r.Context(), value); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newConfigValueResponse(value))
}

func (h *Handler) handleDeleteConfigValue(w http.ResponseWriter, r *http.Request) {
	var req valueKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ConfigItemKey == "" || req.ScopeType == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields", "config_item_key and scope_type are required")
		return
	}

	key := model.ValueKey{
		ConfigItemKey: req.ConfigItemKey,
		ScopeType:     req.ScopeType,
		ScopeValue:    derefString(req.ScopeValue),
	}
	removed, err := h.storage.Values().Delete(r.Context(), key)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Config value not found", fmt.Sprintf("no config value %s", key))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ConfigItemKey == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields", "config_item_key is required")
		return
	}

	res, found, err := h.resolver.Resolve(r.Context(), req.ConfigItemKey, req.Properties)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, resolveResponse{Found: false})
		return
	}

	value := res.Value
	writeJSON(w, http.StatusOK, resolveResponse{
		Value:      &value,
		Found:      true,
		ScopeType:  res.ScopeType,
		ScopeValue: nullable(res.ScopeValue),
	})
}

// writeDomainError maps storage and resolver errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, model.ErrBackend):
		h.logger.Error("persistence write failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "Persistence backend unavailable", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// rawValue returns the textual form of a JSON string or number.
func rawValue(msg json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(msg)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return "", errors.New("value is required")
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("decode string value: %w", err)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", errors.New("value must be a string or a number")
	}
	return n.String(), nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return false
	}
	return true
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type createItemRequest struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	ValueType   string `json:"value_type"`
}

type setValueRequest struct {
	ConfigItemKey string          `json:"config_item_key"`
	ScopeType     string          `json:"scope_type"`
	ScopeValue    *string         `json:"scope_value"`
	Value         json.RawMessage `json:"value"`
}

type valueKeyRequest struct {
	ConfigItemKey string  `json:"config_item_key"`
	ScopeType     string  `json:"scope_type"`
	ScopeValue    *string `json:"scope_value"`
}

type resolveRequest struct {
	ConfigItemKey string           `json:"config_item_key"`
	Properties    model.Properties `json:"properties"`
}

type configValueResponse struct {
	ConfigItemKey string  `json:"config_item_key"`
	ScopeType     string  `json:"scope_type"`
	ScopeValue    *string `json:"scope_value"`
	Value         string  `json:"value"`
}

func newConfigValueResponse(v model.ConfigValue) configValueResponse {
	return configValueResponse{
		ConfigItemKey: v.ConfigItemKey,
		ScopeType:     v.ScopeType,
		ScopeValue:    nullable(v.ScopeValue),
		Value:         v.Value,
	}
}

type resolveResponse struct {
	Value      *coercion.Value `json:"value,omitempty"`
	Found      bool            `json:"found"`
	ScopeType  string          `json:"scope_type,omitempty"`
	ScopeValue *string         `json:"scope_value,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
