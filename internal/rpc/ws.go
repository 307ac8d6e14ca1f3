package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSClient waits for signature notifications over the node's pubsub socket.
type WSClient struct {
	url    string
	dialer *websocket.Dialer
	logger *logrus.Logger
}

func NewWSClient(url string, logger *logrus.Logger) *WSClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &WSClient{url: url, dialer: websocket.DefaultDialer, logger: logger}
}

type wsMessage struct {
	ID     *int            `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	Method string          `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Err json.RawMessage `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// SignatureResult is the outcome carried by a signatureNotification.
type SignatureResult struct {
	Err json.RawMessage
}

func (r SignatureResult) Failed() bool {
	return len(r.Err) > 0 && string(r.Err) != "null"
}

// WaitForSignature subscribes to sig and blocks until the node notifies at
// commitment or ctx ends.
func (w *WSClient) WaitForSignature(ctx context.Context, sig, commitment string) (SignatureResult, error) {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return SignatureResult{}, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	sub := request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "signatureSubscribe",
		Params:  []interface{}{sig, map[string]interface{}{"commitment": commitment}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return SignatureResult{}, fmt.Errorf("subscribe: %w", err)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return SignatureResult{}, ctx.Err()
			}
			return SignatureResult{}, fmt.Errorf("websocket read: %w", err)
		}
		if msg.Error != nil {
			return SignatureResult{}, msg.Error
		}
		if msg.Method == "signatureNotification" {
			w.logger.WithField("signature", sig).Debug("signature notification received")
			return SignatureResult{Err: msg.Params.Result.Value.Err}, nil
		}
	}
}
