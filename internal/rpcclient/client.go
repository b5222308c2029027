// Package rpcclient provides a JSON-RPC 2.0 client for privia nodes.
package rpcclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/privia-labs/privia/internal/ledger"
	"github.com/privia-labs/privia/internal/rpc"
	"github.com/privia-labs/privia/pkg/crypto"
)

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client

	mu        sync.Mutex
	lastNonce uint64
	chainID   string
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// rpcError is a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Rejection decodes the ledger rejection carried by a CodeRejected error.
func (e *RPCError) Rejection() (ledger.Rejection, bool) {
	if e.Code != rpc.CodeRejected || len(e.Data) == 0 {
		return ledger.Rejection{}, false
	}
	var r ledger.Rejection
	if err := json.Unmarshal(e.Data, &r); err != nil {
		return ledger.Rejection{}, false
	}
	return r, true
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	req, err := newRequest(method, params)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

// CallSigned invokes an update method authenticated by signer. The node's
// chain id is fetched once and bound into every signature.
func (c *Client) CallSigned(method string, params interface{}, signer crypto.Signer, result interface{}) error {
	chainID, err := c.ChainID()
	if err != nil {
		return err
	}
	req, err := newRequest(method, params)
	if err != nil {
		return err
	}
	if err := rpc.SignRequest(req, chainID, signer, c.nextNonce()); err != nil {
		return err
	}
	return c.do(req, result)
}

// ChainID returns the chain id of the node, cached after the first call.
func (c *Client) ChainID() (string, error) {
	c.mu.Lock()
	id := c.chainID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}
	if err := c.Call("ledger_chainId", nil, &id); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return id, nil
}

// nextNonce returns the current time in nanoseconds, bumped so that it is
// strictly increasing and identical calls produce distinct signed requests.
func (c *Client) nextNonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := uint64(time.Now().UnixNano())
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return n
}

func newRequest(method string, params interface{}) (*rpc.Request, error) {
	req := &rpc.Request{JSONRPC: "2.0", Method: method, ID: 1}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}
	return req, nil
}

func (c *Client) do(req *rpc.Request, result interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}
