package stripewebhook

import "github.com/hirelocal/hirelocal-backend/pkg/enums"

// canTransition encodes the transaction settlement machine. Pending rows
// settle to succeeded or failed; succeeded rows may later be refunded.
// Refunded is terminal, and a failed row never moves again because retries
// open a fresh row.
func canTransition(from, to enums.TransactionStatus) bool {
	switch from {
	case enums.TransactionStatusPending:
		return to == enums.TransactionStatusSucceeded || to == enums.TransactionStatusFailed
	case enums.TransactionStatusSucceeded:
		return to == enums.TransactionStatusRefunded
	default:
		return false
	}
}
