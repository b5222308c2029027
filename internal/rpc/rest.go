package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/privia-labs/privia/pkg/types"
)

// restError is the body of a failed REST read.
type restError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeREST(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeRESTError converts a JSON-RPC error into an HTTP status.
func writeRESTError(w http.ResponseWriter, e *Error) {
	status := http.StatusInternalServerError
	switch e.Code {
	case CodeInvalidParams:
		status = http.StatusBadRequest
	case CodeNotFound:
		status = http.StatusNotFound
	case CodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeREST(w, status, restError{Error: e.Message, Code: e.Code})
}

func accountVar(w http.ResponseWriter, r *http.Request) (types.Account, bool) {
	acct, err := types.ParseAccount(mux.Vars(r)["account"])
	if err != nil {
		writeRESTError(w, &Error{Code: CodeInvalidParams, Message: err.Error()})
		return types.Account{}, false
	}
	return acct, true
}

func (s *Server) handleRESTBalance(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountVar(w, r)
	if !ok {
		return
	}
	bal, err := s.ledger.BalanceOf(acct)
	if err != nil {
		writeRESTError(w, s.errorFor(err))
		return
	}
	writeREST(w, http.StatusOK, BalanceResult{Account: acct, Balance: bal})
}

func (s *Server) handleRESTSupply(w http.ResponseWriter, _ *http.Request) {
	if e := s.requireLedger(); e != nil {
		writeRESTError(w, e)
		return
	}
	supply, err := s.ledger.TotalSupply()
	if err != nil {
		writeRESTError(w, s.errorFor(err))
		return
	}
	writeREST(w, http.StatusOK, SupplyResult{TotalSupply: supply})
}

func (s *Server) handleRESTMetadata(w http.ResponseWriter, _ *http.Request) {
	if e := s.requireLedger(); e != nil {
		writeRESTError(w, e)
		return
	}
	writeREST(w, http.StatusOK, s.ledger.Metadata())
}

func (s *Server) handleRESTScore(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountVar(w, r)
	if !ok {
		return
	}
	res, err := s.score(acct)
	if err != nil {
		writeRESTError(w, s.errorFor(err))
		return
	}
	writeREST(w, http.StatusOK, res)
}
