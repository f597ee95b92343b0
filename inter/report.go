package inter

import (
	"github.com/ethereum/go-ethereum/common"
)

// ReportStatus is the adjudication state of a report.
type ReportStatus uint8

const (
	// ReportStatusOpen reports await the challenger.
	ReportStatusOpen ReportStatus = iota
	// ReportStatusResolved reports were adjudicated by the challenger. Terminal.
	ReportStatusResolved
	// ReportStatusExpired reports outlived the challenge window and were swept. Terminal.
	ReportStatusExpired
)

func (s ReportStatus) String() string {
	switch s {
	case ReportStatusOpen:
		return "open"
	case ReportStatusResolved:
		return "resolved"
	case ReportStatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ReportStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Verdict is the validity decision attached to a resolved report.
type Verdict uint8

const (
	VerdictNone Verdict = iota
	VerdictValid
	VerdictInvalid
)

func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictInvalid:
		return "invalid"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Report is a misconduct accusation against a relayer.
//
// Reports are never deleted. Challenged is a one-way latch: once set it is
// never cleared, and Status never leaves a terminal state.
type Report struct {
	ID           uint64         `json:"report_id"`
	Reporter     common.Address `json:"reporter"`
	Relayer      common.Address `json:"relayer"`
	Evidence     []byte         `json:"evidence"`
	EvidenceHash common.Hash    `json:"evidence_hash"`
	FiledAt      Timestamp      `json:"filed_at"`
	Status       ReportStatus   `json:"status"`
	Challenged   bool           `json:"challenged"`
	Verdict      Verdict        `json:"verdict"`
}

// Open reports whether the report still awaits adjudication.
func (r *Report) Open() bool {
	return r.Status == ReportStatusOpen
}

// Copy returns a deep copy of the report.
func (r *Report) Copy() *Report {
	cp := *r
	cp.Evidence = common.CopyBytes(r.Evidence)
	return &cp
}
