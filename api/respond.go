package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

const (
	headerCaller = "X-Caller"
	headerValue  = "X-Value"
)

// errBadRequest marks malformed requests that never reached the ledger.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusOf maps a failed call onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, evmcore.ErrInsufficientBalance),
		errors.Is(err, inter.ErrAmountOverflow),
		errors.Is(err, inter.ErrNegativeAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err. Internal faults are logged and hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError && code != http.StatusBadGateway {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		respondWithError(w, code, "Internal Server Error")
		return
	}
	respondWithError(w, code, err.Error())
}

// transact runs fn as one host call on behalf of the request's caller.
func (h *Handler) transact(r *http.Request, fn func(env ledger.Env) error) error {
	caller, err := callerOf(r)
	if err != nil {
		return err
	}
	value, err := valueOf(r)
	if err != nil {
		return err
	}

	h.host.Tick(inter.FromTime(h.clock()))
	_, err = h.host.Transact(caller, value, func(ctx *evmcore.CallContext) error {
		return fn(ctx)
	})
	return err
}

func callerOf(r *http.Request) (common.Address, error) {
	raw := r.Header.Get(headerCaller)
	if raw == "" {
		return common.Address{}, badRequest("missing %s header", headerCaller)
	}
	caller, err := inter.ParseAccount(raw)
	if err != nil {
		return common.Address{}, badRequest("%s: %v", headerCaller, err)
	}
	return caller, nil
}

func valueOf(r *http.Request) (*big.Int, error) {
	raw := strings.TrimSpace(r.Header.Get(headerValue))
	if raw == "" {
		return new(big.Int), nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, badRequest("%s must be a decimal amount", headerValue)
	}
	return value, nil
}

func accountVar(r *http.Request, name string) (common.Address, error) {
	acc, err := inter.ParseAccount(mux.Vars(r)[name])
	if err != nil {
		return common.Address{}, badRequest("%s: %v", name, err)
	}
	return acc, nil
}

func idVar(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, badRequest("id: %v", err)
	}
	return id, nil
}

func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("malformed JSON body: %v", err)
	}
	return nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
