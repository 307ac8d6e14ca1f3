package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/swapengine"
	"github.com/labstack/echo/v4"
)

const (
	maxWait          = 2 * time.Minute
	eventsHeartbeat  = 15 * time.Second
	defaultListLimit = 50
	maxListLimit     = 200
)

// SwapCreate starts an attempt signed by the server wallet and returns its id
// immediately. Progress is visible on GET /swaps/:id and the event stream.
func (h *Handlers) SwapCreate(c echo.Context) error {
	if h.Wallet == nil {
		return h.err(c, http.StatusServiceUnavailable, "no server wallet configured", nil)
	}
	var req SwapCreateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	id, err := h.Engine.Start(c.Request().Context(), swapengine.SwapRequest{
		QuoteRequest: swapengine.QuoteRequest{
			Chain:       req.Chain,
			InputToken:  req.InputToken,
			OutputToken: req.OutputToken,
			Amount:      req.Amount,
			SlippageBps: req.SlippageBps,
		},
		PriorityFeeMicroLamports: req.PriorityFee,
	}, h.Wallet)
	if err != nil {
		return h.swapErr(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/swaps/"+id)
	return c.JSON(http.StatusAccepted, SwapCreateResponse{ID: id})
}

// SwapGet returns the attempt. With ?wait=<duration> it blocks until the
// attempt is terminal or the wait elapses.
func (h *Handlers) SwapGet(c echo.Context) error {
	id := c.Param("id")
	if v := c.QueryParam("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return h.err(c, http.StatusBadRequest, "invalid wait", map[string]any{"wait": "must be a positive duration"})
		}
		if d > maxWait {
			d = maxWait
		}
		ctx, cancel := h.withTimeout(c.Request().Context(), d)
		defer cancel()

		view, err := h.Engine.Wait(ctx, id)
		if err != nil && view.ID == "" {
			return h.swapErr(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}

	view, err := h.Engine.Attempt(id)
	if err != nil {
		return h.swapErr(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// SwapList returns this process's attempts, newest first.
func (h *Handlers) SwapList(c echo.Context) error {
	limit := defaultListLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > maxListLimit {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": fmt.Sprintf("min 1 max %d", maxListLimit)})
	}

	items := h.Engine.Attempts()
	if len(items) > limit {
		items = items[:limit]
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) SwapCancel(c echo.Context) error {
	id := c.Param("id")
	if err := h.Engine.Cancel(id); err != nil {
		return h.swapErr(c, err)
	}
	view, err := h.Engine.Attempt(id)
	if err != nil {
		return h.swapErr(c, err)
	}
	return c.JSON(http.StatusAccepted, view)
}

// Events streams swap events as server-sent events. ?attempt=<id> narrows the
// stream to one attempt.
func (h *Handlers) Events(c echo.Context) error {
	only := c.QueryParam("attempt")
	events, unsubscribe := h.Engine.Subscribe()
	defer unsubscribe()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if only != "" && ev.AttemptID != only {
				continue
			}
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
