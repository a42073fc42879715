package order

import "time"

// PaymentStatus tracks money movement for the order.
//
//	pending ──> completed ──> refund_pending ──> refunded
//	   │                            └──────────> refund_failed
//	   └──────> failed
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusCompleted     PaymentStatus = "completed"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusRefundPending PaymentStatus = "refund_pending"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusRefundFailed  PaymentStatus = "refund_failed"
)

func (p PaymentStatus) String() string {
	return string(p)
}

// RetryOperation names the transient step a retry belongs to.
type RetryOperation string

const (
	RetryNone         RetryOperation = ""
	RetryPayment      RetryOperation = "payment"
	RetryRefund       RetryOperation = "refund"
	RetryDriverSearch RetryOperation = "driver_search"
)

// RetryState is the backoff bookkeeping for the step currently being retried.
type RetryState struct {
	Operation     RetryOperation
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
}

func (r RetryState) IsZero() bool {
	return r.Operation == RetryNone
}
