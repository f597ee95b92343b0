package api

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
)

// CreatePlanRequest is the body of POST /v1/plans.
type CreatePlanRequest struct {
	Relayer  string         `json:"relayer"`
	Duration inter.Duration `json:"duration"`
}

// StakeRequest is the body of POST /v1/relayers/{relayer}/stake.
type StakeRequest struct {
	Amount *big.Int `json:"amount"`
}

// FileReportRequest is the body of POST /v1/reports. Evidence is base64
// encoded in JSON.
type FileReportRequest struct {
	Relayer  string `json:"relayer"`
	Evidence []byte `json:"evidence"`
}

// SetRoleRequest is the body of PUT /v1/roles/{role}. The zero account
// revokes the role.
type SetRoleRequest struct {
	Account string `json:"account"`
}

// ChallengeResponse is the adjudication result.
type ChallengeResponse struct {
	Report        *inter.Report `json:"report"`
	Valid         bool          `json:"valid"`
	Penalty       *big.Int      `json:"penalty"`
	TransferError string        `json:"transfer_error,omitempty"`
}

// SettlementResponse is the payout to one relayer.
type SettlementResponse struct {
	Relayer       common.Address `json:"relayer"`
	Subscriptions []uint64       `json:"subscriptions"`
	Amount        *big.Int       `json:"amount"`
	Error         string         `json:"error,omitempty"`
}

// SettleResponse summarizes a settlement pass.
type SettleResponse struct {
	Settlements []SettlementResponse `json:"settlements"`
	Paid        *big.Int             `json:"paid"`
}

// ExpiredResponse is one swept report.
type ExpiredResponse struct {
	ReportID      uint64         `json:"report_id"`
	Relayer       common.Address `json:"relayer"`
	Penalty       *big.Int       `json:"penalty"`
	TransferError string         `json:"transfer_error,omitempty"`
}

// ExpireResponse summarizes an expiry sweep.
type ExpireResponse struct {
	Expired []ExpiredResponse `json:"expired"`
}

// GovernanceResponse lists the privileged accounts.
type GovernanceResponse struct {
	Owner      common.Address `json:"owner"`
	Treasury   common.Address `json:"treasury"`
	Challenger common.Address `json:"challenger"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func newChallengeResponse(out *ledger.ChallengeOutcome) ChallengeResponse {
	return ChallengeResponse{
		Report:        out.Report,
		Valid:         out.Valid,
		Penalty:       out.Penalty,
		TransferError: errString(out.TransferErr),
	}
}

func newSettleResponse(rep *ledger.SettlementReport) SettleResponse {
	resp := SettleResponse{Settlements: []SettlementResponse{}, Paid: rep.Paid()}
	for _, s := range rep.Settlements {
		resp.Settlements = append(resp.Settlements, SettlementResponse{
			Relayer:       s.Relayer,
			Subscriptions: s.Subscriptions,
			Amount:        s.Amount,
			Error:         errString(s.Err),
		})
	}
	return resp
}

func newExpireResponse(rep *ledger.ExpiryReport) ExpireResponse {
	resp := ExpireResponse{Expired: []ExpiredResponse{}}
	for _, e := range rep.Expired {
		resp.Expired = append(resp.Expired, ExpiredResponse{
			ReportID:      e.ReportID,
			Relayer:       e.Relayer,
			Penalty:       e.Penalty,
			TransferError: errString(e.TransferErr),
		})
	}
	return resp
}
