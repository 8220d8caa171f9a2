package ledger

import (
	"strings"

	"github.com/google/uuid"
)

var referencePrefixes = map[EntryType]string{
	EntryDeposit:            "DEP",
	EntryWithdrawal:         "WTH",
	EntryCreditDisbursement: "DSB",
	EntryCreditRepayment:    "REP",
}

// NewReference returns a ledger-unique, type-prefixed entry reference.
func NewReference(t EntryType) string {
	prefix, ok := referencePrefixes[t]
	if !ok {
		prefix = "TXN"
	}
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
