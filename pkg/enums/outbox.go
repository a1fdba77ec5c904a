package enums

// OutboxEventType enumerates domain events published through the outbox.
type OutboxEventType string

const (
	EventAccountOnboardingStarted OutboxEventType = "account.onboarding_started"
	EventAccountCapabilitiesSet   OutboxEventType = "account.capabilities_set"
	EventTransactionCreated       OutboxEventType = "transaction.created"
	EventTransactionFinalized     OutboxEventType = "transaction.finalized"
)

// OutboxAggregateType enumerates the aggregates outbox events attach to.
type OutboxAggregateType string

const (
	AggregateConnectedAccount   OutboxAggregateType = "connected_account"
	AggregateBookingTransaction OutboxAggregateType = "booking_transaction"
)
