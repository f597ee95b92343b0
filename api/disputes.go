package api

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

// StakeHandler stakes the value attached in X-Value on a relayer.
func (h *Handler) StakeHandler(w http.ResponseWriter, r *http.Request) {
	relayer, err := accountVar(r, "relayer")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req StakeRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	err = h.transact(r, func(env ledger.Env) error {
		return h.ledger.Stake(env, relayer, req.Amount)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithStake(w, r, relayer)
}

func (h *Handler) GetStakeHandler(w http.ResponseWriter, r *http.Request) {
	relayer, err := accountVar(r, "relayer")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondWithStake(w, r, relayer)
}

func (h *Handler) respondWithStake(w http.ResponseWriter, r *http.Request, relayer common.Address) {
	entry, err := h.ledger.StakeEntry(relayer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

func (h *Handler) FileReportHandler(w http.ResponseWriter, r *http.Request) {
	var req FileReportRequest
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
		id, err = h.ledger.FileReport(env, relayer, req.Evidence)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/reports/%d", id))
	respondWithJSON(w, http.StatusCreated, map[string]uint64{"report_id": id})
}

func (h *Handler) OpenReportsHandler(w http.ResponseWriter, r *http.Request) {
	reports, err := h.ledger.OpenReports()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if reports == nil {
		reports = []*inter.Report{}
	}
	respondWithJSON(w, http.StatusOK, reports)
}

func (h *Handler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rep, err := h.ledger.Report(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rep)
}

// ChallengeHandler adjudicates a report. Only the challenger may call it.
func (h *Handler) ChallengeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idVar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var out *ledger.ChallengeOutcome
	err = h.transact(r, func(env ledger.Env) error {
		var err error
		out, err = h.ledger.Challenge(env, id)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if out.TransferErr != nil {
		h.log.WithError(out.TransferErr).WithField("report", id).Warn("Penalty not paid to treasury")
	}
	respondWithJSON(w, http.StatusOK, newChallengeResponse(out))
}

// ExpireHandler sweeps reports that outlived the challenge window. Anyone
// may trigger it.
func (h *Handler) ExpireHandler(w http.ResponseWriter, r *http.Request) {
	var rep *ledger.ExpiryReport
	err := h.transact(r, func(env ledger.Env) error {
		var err error
		rep, err = h.ledger.ExpireUnchallenged(env)
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newExpireResponse(rep))
}
