package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

// maxEventsLimit caps a single /v1/events page.
const maxEventsLimit = 1000

func (h *Handler) RulesHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.ledger.Rules())
}

func (h *Handler) HeadHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.host.Head())
}

func (h *Handler) GovernanceHandler(w http.ResponseWriter, r *http.Request) {
	var (
		resp GovernanceResponse
		err  error
	)
	if resp.Owner, err = h.ledger.Owner(); err != nil {
		h.fail(w, r, err)
		return
	}
	if resp.Treasury, err = h.ledger.Treasury(); err != nil {
		h.fail(w, r, err)
		return
	}
	if resp.Challenger, err = h.ledger.Role(inter.RoleChallenger); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	acc, err := accountVar(r, "account")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"account": acc,
		"balance": h.host.Balance(acc),
	})
}

func (h *Handler) GetRoleHandler(w http.ResponseWriter, r *http.Request) {
	role := mux.Vars(r)["role"]
	holder, err := h.ledger.Role(role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"role":    role,
		"account": holder,
	})
}

// SetRoleHandler reassigns a role. Only the owner may call it.
func (h *Handler) SetRoleHandler(w http.ResponseWriter, r *http.Request) {
	role := mux.Vars(r)["role"]
	var req SetRoleRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := inter.ParseAccount(req.Account)
	if err != nil {
		h.fail(w, r, badRequest("account: %v", err))
		return
	}

	err = h.transact(r, func(env ledger.Env) error {
		return h.ledger.SetRole(env, role, account)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"role":    role,
		"account": account,
	})
}

func (h *Handler) RoleHistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := h.ledger.RoleHistory(mux.Vars(r)["role"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if history == nil {
		history = []inter.RoleChange{}
	}
	respondWithJSON(w, http.StatusOK, history)
}

// EventsHandler lists the most recent notifications, newest first.
func (h *Handler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondWithError(w, http.StatusNotFound, "Event history is disabled")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(w, r, badRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}
