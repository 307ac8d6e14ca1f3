package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/labstack/echo/v4"
)

const haltScopeAll = "all"

// haltChain maps a halt scope onto a chain; "all" is the global switch.
func (h *Handlers) haltChain(scope string) (models.Chain, bool) {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" || scope == haltScopeAll {
		return "", true
	}
	for _, c := range h.Engine.Chains() {
		if string(c) == scope {
			return c, true
		}
	}
	return "", false
}

// Halt stops new swap attempts on one chain or all of them. Attempts already
// running are not affected.
func (h *Handlers) Halt(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	var req HaltRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	chain, ok := h.haltChain(req.Chain)
	if !ok {
		return h.err(c, http.StatusBadRequest, "unknown chain", map[string]any{"chain": req.Chain})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	f, err := h.Flags.Halt(ctx, chain, strings.TrimSpace(req.Reason))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to halt swaps", nil)
	}
	h.logFlag(f)
	return c.JSON(http.StatusOK, f)
}

func (h *Handlers) Resume(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	chain, ok := h.haltChain(c.Param("chain"))
	if !ok {
		return h.err(c, http.StatusBadRequest, "unknown chain", map[string]any{"chain": c.Param("chain")})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Resume(ctx, chain); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to resume swaps", nil)
	}
	if h.Logger != nil {
		h.Logger.WithField("chain", chain).Info("swaps resumed")
	}
	return c.NoContent(http.StatusNoContent)
}
