package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/catalog"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/flags"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swapengine"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/wallet"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine  *swapengine.Engine
	Catalog *catalog.Catalog
	Flags   *flags.Store   // Redis-backed halt switches (optional)
	Wallet  *wallet.Handle // Server-side signer for POST /swaps (optional)
	DevMode bool           // Enable detailed error responses in development
	Logger  *logrus.Logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// swapErr renders an engine or swap pipeline failure.
func (h *Handlers) swapErr(c echo.Context, err error) error {
	code := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}
	if se, ok := swaperr.As(err); ok {
		resp.Error = se.Message
		resp.Kind = string(se.Kind)
		if h.DevMode && se.Cause != nil {
			resp.Details = map[string]any{"cause": se.Cause.Error()}
		}
	}
	if code >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.WithError(err).WithField("path", c.Path()).Warn("request failed")
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{OK: true, Chains: h.Engine.Chains()}
	if h.Catalog != nil {
		resp.Tokens = h.Catalog.Len()
	}
	return c.JSON(http.StatusOK, resp)
}

// Tokens searches the catalog by symbol or name. An empty q lists everything.
func (h *Handlers) Tokens(c echo.Context) error {
	if h.Catalog == nil {
		return h.err(c, http.StatusServiceUnavailable, "token catalog is not configured", nil)
	}
	q := strings.TrimSpace(c.QueryParam("q"))

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Catalog.Search(ctx, q)
	if err != nil {
		return h.err(c, http.StatusBadGateway, "token search failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) Token(c echo.Context) error {
	if h.Catalog == nil {
		return h.err(c, http.StatusServiceUnavailable, "token catalog is not configured", nil)
	}
	t, ok := h.Catalog.Lookup(c.Param("address"))
	if !ok {
		return h.err(c, http.StatusNotFound, "token not found", nil)
	}
	return c.JSON(http.StatusOK, t)
}

// Route reports which backend would serve a pair without quoting it.
func (h *Handlers) Route(c echo.Context) error {
	chain := models.Chain(strings.TrimSpace(c.QueryParam("chain")))
	in := strings.TrimSpace(c.QueryParam("inputMint"))
	out := strings.TrimSpace(c.QueryParam("outputMint"))
	if in == "" || out == "" {
		return h.err(c, http.StatusBadRequest, "inputMint and outputMint are required", nil)
	}
	backend, err := h.Engine.Route(chain, in, out)
	if err != nil {
		return h.swapErr(c, err)
	}
	if chain == "" {
		chain = h.Engine.DefaultChain()
	}
	return c.JSON(http.StatusOK, RouteResponse{Chain: chain, Backend: backend})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value, strings.TrimSpace(req.Reason))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	h.logFlag(out)
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value, strings.TrimSpace(req.Reason))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	h.logFlag(out)
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) logFlag(f *flags.Flag) {
	if h.Logger == nil || f == nil {
		return
	}
	h.Logger.WithFields(logrus.Fields{
		"key":    f.Key,
		"value":  f.Value,
		"reason": f.Reason,
	}).Info("flag updated")
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
