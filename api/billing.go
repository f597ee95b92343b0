package api

import (
	"fmt"
	"net/http"

	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

func (h *Handler) CreatePlanHandler(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	relayer, err := inter.ParseAccount(req.Relayer)
	if err != nil {
		h.fail(w, r, badRequest("relayer: %v", err))
		return
	}

	var id uint64
	err = h.transact(r, func(env ledger.Env) error {
		var err error
		id, err = h.ledger.CreatePlan(env, relayer, req.Duration)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/plans/%d", id))
	respondWithJSON(w, http.StatusCreated, map[string]uint64{"plan_id": id})
}

func (h *Handler) ListPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := h.ledger.Plans()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if plans == nil {
		plans = []inter.PlanSummary{}
	}
	respondWithJSON(w, http.StatusOK, plans)
}

func (h *Handler) GetPlanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plan, err := h.ledger.Plan(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, plan)
}

func (h *Handler) PlanSubscribersHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.ledger.SubscribersOfPlan(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithEntries(w, entries)
}

// SubscribeHandler subscribes the caller to a plan. The plan price must be
// attached in X-Value.
func (h *Handler) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var sub *inter.Subscription
	err = h.transact(r, func(env ledger.Env) error {
		var err error
		sub, err = h.ledger.Subscribe(env, id)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/subscriptions/%d", sub.ID))
	respondWithJSON(w, http.StatusCreated, sub)
}

func (h *Handler) GetSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sub, err := h.ledger.SubscriptionByID(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

func (h *Handler) RelayerSubscribersHandler(w http.ResponseWriter, r *http.Request) {
	relayer, err := accountVar(r, "relayer")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.ledger.SubscribersOfRelayer(relayer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithEntries(w, entries)
}

// LatestSubscriptionHandler returns the most recent term of a subscriber
// with a relayer.
func (h *Handler) LatestSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	relayer, err := accountVar(r, "relayer")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	subscriber, err := accountVar(r, "subscriber")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sub, err := h.ledger.Subscription(relayer, subscriber)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sub)
}

// SettleHandler runs a settlement pass. Anyone may trigger it.
func (h *Handler) SettleHandler(w http.ResponseWriter, r *http.Request) {
	var rep *ledger.SettlementReport
	err := h.transact(r, func(env ledger.Env) error {
		var err error
		rep, err = h.ledger.SettleExpired(env)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newSettleResponse(rep))
}

func respondWithEntries(w http.ResponseWriter, entries []inter.SubscriberEntry) {
	if entries == nil {
		entries = []inter.SubscriberEntry{}
	}
	respondWithJSON(w, http.StatusOK, entries)
}
