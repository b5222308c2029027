// Package rpc implements the JSON-RPC 2.0 API server and the REST read
// endpoints.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/privia-labs/privia/config"
	"github.com/privia-labs/privia/internal/discount"
	"github.com/privia-labs/privia/internal/ledger"
	klog "github.com/privia-labs/privia/internal/log"
	"github.com/privia-labs/privia/internal/staking"
	"github.com/privia-labs/privia/internal/storage"
	"github.com/privia-labs/privia/pkg/types"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// RequestIDHeader carries the per-request id in responses.
const RequestIDHeader = "X-Request-Id"

// Backend is what the server exposes.
type Backend struct {
	Ledger   *ledger.Ledger
	Staking  *staking.Service
	Discount *discount.Calculator

	// ChainID is bound into every signed request.
	ChainID string
	// Nonces persists the digests of accepted update requests. Nil keeps
	// them in memory only.
	Nonces *storage.PrefixDB
}

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr        string
	ledger      *ledger.Ledger
	staking     *staking.Service
	discount    *discount.Calculator
	chainID     string
	auth        *authenticator
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
}

// New creates a new RPC server. A zero-value RPCConfig allows all IPs and
// disables CORS.
func New(addr string, b Backend, rpcCfg config.RPCConfig) *Server {
	s := &Server{
		addr:        addr,
		ledger:      b.Ledger,
		staking:     b.Staking,
		discount:    b.Discount,
		chainID:     b.ChainID,
		auth:        newAuthenticator(b.ChainID, b.Nonces),
		logger:      klog.RPC,
		allowedNets: parseAllowedIPs(rpcCfg.AllowedIPs),
	}

	s.server = &http.Server{
		Handler:      s.Handler(rpcCfg.CORSOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler builds the HTTP handler: routes, IP filter, request ids and,
// when origins are configured, CORS.
func (s *Server) Handler(corsOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRequest).Methods(http.MethodPost)

	v1 := r.PathPrefix("/v1").Methods(http.MethodGet).Subrouter()
	v1.HandleFunc("/balance/{account}", s.handleRESTBalance)
	v1.HandleFunc("/supply", s.handleRESTSupply)
	v1.HandleFunc("/metadata", s.handleRESTMetadata)
	v1.HandleFunc("/staking/{account}/score", s.handleRESTScore)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: CodeInvalidRequest, Message: "method not allowed"},
		})
	})

	var h http.Handler = s.filterIP(r)
	h = s.withRequestID(h)
	if len(corsOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{RequestIDHeader},
		}).Handler(h)
	}
	return h
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("RPC server listening")
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type requestIDKey struct{}

// statusWriter records the status code for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		s.logger.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) filterIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowedNets) > 0 {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			ip := net.ParseIP(host)
			if ip == nil || !s.isIPAllowed(ip) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	result, rpcErr := s.dispatch(&req)
	if rpcErr != nil {
		s.logger.Debug().
			Str("request_id", requestID(r.Context())).
			Str("method", req.Method).
			Int("code", rpcErr.Code).
			Str("error", rpcErr.Message).
			Msg("RPC call failed")
		writeJSON(w, Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID})
		return
	}
	writeJSON(w, Response{JSONRPC: "2.0", Result: result, ID: req.ID})
}

// updateMethods change ledger state and require Auth.
var updateMethods = map[string]bool{
	"icrc1_transfer":      true,
	"icrc2_approve":       true,
	"icrc2_transferFrom":  true,
	"ledger_updateConfig": true,
	"ledger_splitBalance": true,
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	if updateMethods[req.Method] {
		caller, err := s.auth.verify(req)
		if err != nil {
			return nil, &Error{Code: CodeUnauthorized, Message: err.Error()}
		}
		return s.dispatchUpdate(req, caller)
	}

	switch req.Method {
	case "icrc1_name":
		return s.handleName(req)
	case "icrc1_symbol":
		return s.handleSymbol(req)
	case "icrc1_decimals":
		return s.handleDecimals(req)
	case "icrc1_fee":
		return s.handleFee(req)
	case "icrc1_metadata":
		return s.handleMetadata(req)
	case "icrc1_totalSupply":
		return s.handleTotalSupply(req)
	case "icrc1_mintingAccount":
		return s.handleMintingAccount(req)
	case "icrc1_balanceOf":
		return s.handleBalanceOf(req)
	case "icrc1_supportedStandards":
		return ledger.SupportedStandards(), nil
	case "ledger_chainId":
		return s.chainID, nil
	case "icrc2_allowance":
		return s.handleAllowance(req)
	case "ledger_getTransaction":
		return s.handleGetTransaction(req)
	case "ledger_getTransactions":
		return s.handleGetTransactions(req)
	case "staking_getLog":
		return s.handleStakingGetLog(req)
	case "staking_getScore":
		return s.handleStakingGetScore(req)
	case "staking_getRewards":
		return s.handleStakingGetRewards(req)
	case "discount_get":
		return s.handleDiscountGet(req)
	case "cycle_current":
		return s.handleCycleCurrent(req)
	case "cycle_details":
		return s.handleCycleDetails(req)
	case "cycle_nextVoting":
		return s.handleCycleNextVoting(req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

func (s *Server) dispatchUpdate(req *Request, caller types.Address) (interface{}, *Error) {
	switch req.Method {
	case "icrc1_transfer":
		return s.handleTransfer(req, caller)
	case "icrc2_approve":
		return s.handleApprove(req, caller)
	case "icrc2_transferFrom":
		return s.handleTransferFrom(req, caller)
	case "ledger_updateConfig":
		return s.handleUpdateConfig(req, caller)
	case "ledger_splitBalance":
		return s.handleSplitBalance(req, caller)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if len(req.Params) == 0 || string(req.Params) == "null" {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	if err := json.Unmarshal(req.Params, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

// errorFor maps a backend error onto a JSON-RPC error.
func (s *Server) errorFor(err error) *Error {
	if r, ok := ledger.RejectionOf(err); ok {
		return &Error{Code: CodeRejected, Message: err.Error(), Data: r}
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	switch {
	case errors.Is(err, ledger.ErrNotInitialized):
		return &Error{Code: CodeUnavailable, Message: err.Error()}
	case errors.Is(err, ledger.ErrUnauthorized):
		return &Error{Code: CodeUnauthorized, Message: err.Error()}
	case isNotFound(err):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case isBadArgument(err):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	s.logger.Error().Err(err).Msg("Internal RPC error")
	return &Error{Code: CodeInternalError, Message: err.Error()}
}
