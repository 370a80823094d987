package domain

// TradeStatus represents the lifecycle stage of a trade. It is always derived
// from the aggregate, never stored.
type TradeStatus int

const (
	StatusUndefined TradeStatus = iota
	StatusCreated
	StatusAccepted
	StatusFunding
	StatusFunded
	StatusPaid
	StatusArbitrating
	StatusCanceling
	StatusCompleting
	StatusCompleted
	StatusCanceled
)

func (s TradeStatus) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusFunding:
		return "FUNDING"
	case StatusFunded:
		return "FUNDED"
	case StatusPaid:
		return "PAID"
	case StatusArbitrating:
		return "ARBITRATING"
	case StatusCanceling:
		return "CANCELING"
	case StatusCompleting:
		return "COMPLETING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCanceled:
		return "CANCELED"
	default:
		return "UNDEFINED"
	}
}

// Terminal returns whether no further sub-message can move the trade.
func (s TradeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Status derives the lifecycle status of the trade as an ordered sequence of
// override rules. Later rules take precedence over earlier ones because later
// protocol phases supersede earlier ones, so the merge order of concurrent
// sub-messages never changes the outcome. A trade without a request cannot
// exist, deriving its status fails with ErrIndeterminateStatus.
func (t *Trade) Status() (TradeStatus, error) {
	if len(t.TradeRequest.Signature) <= 0 {
		return StatusUndefined, ErrIndeterminateStatus
	}

	status := StatusCreated
	if t.TradeAcceptance != nil {
		status = StatusAccepted
	}
	if t.PaymentRequest != nil {
		status = StatusFunding
		if t.FundingConfirmations > 0 {
			status = StatusFunded
		}
	}
	if t.PayoutRequest != nil {
		status = StatusPaid
	}
	if t.ArbitrateRequest != nil {
		status = StatusArbitrating
	}
	if t.CancelCompleted != nil {
		status = StatusCanceling
	}

	if hash := t.PayoutTxHash(); len(hash) > 0 &&
		(status == StatusPaid || status == StatusArbitrating || status == StatusCanceling) {
		status = StatusCompleting
	}
	if status == StatusCompleting && t.PayoutConfirmations > 0 {
		if t.CancelCompleted != nil {
			status = StatusCanceled
		} else {
			status = StatusCompleted
		}
	}

	// An unfunded cancel has no refund transaction to confirm, the trade is
	// torn down as soon as the message lands.
	if t.CancelCompleted != nil && t.CancelCompleted.Reason.Unfunded() &&
		len(t.CancelCompleted.PayoutTxHash) <= 0 {
		status = StatusCanceled
	}

	return status, nil
}
