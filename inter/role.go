package inter

import (
	"github.com/ethereum/go-ethereum/common"
)

// RoleChallenger is the role whose holder adjudicates reports.
const RoleChallenger = "challenger"

// RoleChange is one entry of the role audit log.
type RoleChange struct {
	Seq       uint64         `json:"seq"`
	Role      string         `json:"role"`
	Previous  common.Address `json:"previous"`
	Next      common.Address `json:"next"`
	ChangedBy common.Address `json:"changed_by"`
	At        Timestamp      `json:"at"`
}
