package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestClient(url string, retries int) *Client {
	return NewClient(ClientConfig{
		BaseURL:      url,
		Timeout:      2 * time.Second,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
		Logger:       quietLogger(),
	})
}

type capturedRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func decodeRequest(t *testing.T, r *http.Request) capturedRequest {
	t.Helper()
	var req capturedRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestCallRetriesOnStatusError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":42}`))
	}))
	defer srv.Close()

	var out int
	err := newTestClient(srv.URL, 3).Call(context.Background(), "getSlot", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallDoesNotRetryRPCError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bad params"}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL, 3).Call(context.Background(), "getSlot", nil, nil)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendTransactionParams(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "sendTransaction", req.Method)

		params := req.Params
		require.Len(t, params, 2)

		var encoded string
		require.NoError(t, json.Unmarshal(params[0], &encoded))
		assert.Equal(t, base64.StdEncoding.EncodeToString(payload), encoded)

		var cfg map[string]interface{}
		require.NoError(t, json.Unmarshal(params[1], &cfg))
		assert.Equal(t, "base64", cfg["encoding"])
		assert.Equal(t, true, cfg["skipPreflight"])
		assert.Equal(t, "confirmed", cfg["preflightCommitment"])

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"5sig"}`))
	}))
	defer srv.Close()

	sig, err := newTestClient(srv.URL, 0).SendTransaction(context.Background(), payload, SendOptions{
		SkipPreflight:       true,
		PreflightCommitment: "confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, "5sig", sig)
}

func TestSendTransactionIsSingleShot(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("busy"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 5).SendTransaction(context.Background(), []byte{1}, SendOptions{})
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "busy", statusErr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDialFailureIsNotDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, 0).SendTransaction(context.Background(), []byte{1}, SendOptions{})
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.False(t, tErr.MaybeDelivered)
}

func TestGetSignatureStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":9},"value":[
			{"slot":8,"confirmations":null,"err":null,"confirmationStatus":"finalized"},
			null,
			{"slot":9,"confirmations":1,"err":{"InstructionError":[0,"Custom"]},"confirmationStatus":"confirmed"}
		]}}`))
	}))
	defer srv.Close()

	statuses, err := newTestClient(srv.URL, 0).GetSignatureStatuses(context.Background(), "a", "b", "c")
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.False(t, statuses[0].Failed())
	assert.True(t, statuses[0].Reached("confirmed"))
	assert.Nil(t, statuses[1])
	assert.True(t, statuses[2].Failed())
	assert.True(t, statuses[2].Reached("confirmed"))
	assert.False(t, statuses[2].Reached("finalized"))
}

func TestGetLatestBlockhash(t *testing.T) {
	want := solana.Hash(solana.TokenProgramID)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, "getLatestBlockhash", req.Method)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"blockhash":"` + want.String() + `","lastValidBlockHeight":100}}}`))
	}))
	defer srv.Close()

	h, err := newTestClient(srv.URL, 0).GetLatestBlockhash(context.Background(), "confirmed")
	require.NoError(t, err)
	assert.Equal(t, want, h)
}

func TestRPCErrorDetailIncludesLogs(t *testing.T) {
	e := &RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed",
		Data:    json.RawMessage(`{"logs":["Program log: slippage exceeded"]}`),
	}
	assert.True(t, strings.Contains(e.Detail(), "slippage exceeded"))
	assert.Equal(t, "Transaction simulation failed", e.Error())
}

func TestWaitForSignature(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub map[string]interface{}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		assert.Equal(t, "signatureSubscribe", sub["method"])
		_ = conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": 7})
		_ = conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "signatureNotification",
			"params": map[string]interface{}{
				"subscription": 7,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 5},
					"value":   map[string]interface{}{"err": nil},
				},
			},
		})
	}))
	defer srv.Close()

	ws := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http"), quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := ws.WaitForSignature(ctx, "5sig", "confirmed")
	require.NoError(t, err)
	assert.False(t, res.Failed())
}

func TestWaitForSignatureHonoursContext(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ws := NewWSClient("ws"+strings.TrimPrefix(srv.URL, "http"), quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := ws.WaitForSignature(ctx, "5sig", "confirmed")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
