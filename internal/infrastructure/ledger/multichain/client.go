package multichain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/healthchain/rxintake/internal/core/domain"
	"github.com/healthchain/rxintake/internal/core/ports"
	"github.com/healthchain/rxintake/internal/infrastructure/resilience"
)

// Client speaks JSON-RPC 2.0 to a MultiChain node over HTTP basic auth.
// Stream payloads are hex-encoded UTF-8 JSON per the node's wire
// convention. Calls are single-attempt; the resilience executor only adds
// a circuit breaker in front of an unreachable node.
type Client struct {
	rpcURL     string
	username   string
	password   string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(rpcURL, username, password string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		rpcURL:     strings.TrimRight(rpcURL, "/") + "/",
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     int             `json:"id"`
}

type streamItem struct {
	Keys []string `json:"keys"`
	Data string   `json:"data"`
}

func (c *Client) Append(ctx context.Context, stream, key string, payload []byte) (json.RawMessage, error) {
	hexPayload := hex.EncodeToString(payload)
	envelope, err := c.call(ctx, "ledger.publish", "publish", []any{stream, key, hexPayload})
	if err != nil {
		return nil, err
	}
	return envelope, nil
}

func (c *Client) QueryKey(ctx context.Context, stream, key string) ([]ports.LedgerItem, error) {
	envelope, err := c.call(ctx, "ledger.liststreamkeyitems", "liststreamkeyitems", []any{stream, key})
	if err != nil {
		return nil, err
	}
	return decodeItems(envelope)
}

func (c *Client) QueryKeyRaw(ctx context.Context, stream, key string) (json.RawMessage, error) {
	return c.call(ctx, "ledger.liststreamkeyitems", "liststreamkeyitems", []any{stream, key})
}

func (c *Client) QueryAll(ctx context.Context, stream string) ([]ports.LedgerItem, error) {
	envelope, err := c.call(ctx, "ledger.liststreamitems", "liststreamitems", []any{stream})
	if err != nil {
		return nil, err
	}
	return decodeItems(envelope)
}

// call runs one JSON-RPC request and returns the full response envelope.
// Transport failures and RPC-level errors both surface as ErrRPC; an open
// circuit surfaces as ErrTemporary so callers can answer 503 instead of
// blaming the request.
func (c *Client) call(ctx context.Context, operation, method string, params []any) (json.RawMessage, error) {
	var envelope json.RawMessage

	doCall := func(ctx context.Context) error {
		raw, err := c.post(ctx, method, params)
		if err != nil {
			return err
		}
		envelope = raw
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, doCall, classifyRPCError)
	} else {
		err = doCall(ctx)
	}
	if err != nil {
		if resilience.IsCircuitOpen(err) {
			return nil, domain.WrapError(domain.ErrTemporary, method, err)
		}
		return nil, domain.WrapError(domain.ErrRPC, method, err)
	}
	return envelope, nil
}

func (c *Client) post(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"method":  method,
		"params":  params,
		"id":      1,
		"jsonrpc": "2.0",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("multichain %s request: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope rpcEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response (status %s): %w", method, resp.Status, err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("multichain %s: %w", method, envelope.Error)
	}
	return raw, nil
}

func decodeItems(envelope json.RawMessage) ([]ports.LedgerItem, error) {
	var parsed struct {
		Result []streamItem `json:"result"`
	}
	if err := json.Unmarshal(envelope, &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrRPC, "decode stream items", err)
	}

	items := make([]ports.LedgerItem, 0, len(parsed.Result))
	for _, item := range parsed.Result {
		data, err := hex.DecodeString(item.Data)
		if err != nil {
			return nil, domain.WrapError(domain.ErrRPC, "hex-decode stream item", err)
		}
		items = append(items, ports.LedgerItem{Keys: item.Keys, Data: data})
	}
	return items, nil
}

func classifyRPCError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	// RPC-level errors are the node answering; only count transport
	// failures against the breaker.
	var rpcErr *rpcError
	if errors.As(err, &rpcErr) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
