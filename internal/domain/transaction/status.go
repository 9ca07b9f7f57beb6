package transaction

// DetailedStatus is the rail-agnostic lifecycle state of a transaction.
// It is mutated only through the transition path; see CanTransition.
type DetailedStatus string

const (
	StatusPending       DetailedStatus = "PENDING"
	StatusInProcess     DetailedStatus = "IN_PROCESS"
	StatusDone          DetailedStatus = "DONE"
	StatusUndone        DetailedStatus = "UNDONE"
	StatusCanceled      DetailedStatus = "CANCELED"
	StatusFailed        DetailedStatus = "FAILED"
	StatusRefundPending DetailedStatus = "REFUND_PENDING"
	StatusRefunded      DetailedStatus = "REFUNDED"
)

// SemanticStatus is the coarse, user-facing grouping of detailed statuses
type SemanticStatus string

const (
	SemanticProcessing SemanticStatus = "PROCESSING"
	SemanticSuccess    SemanticStatus = "SUCCESS"
	SemanticFailed     SemanticStatus = "FAILED"
	SemanticRefunded   SemanticStatus = "REFUNDED"
)

// DetailedStatuses lists every detailed status value
var DetailedStatuses = []DetailedStatus{
	StatusPending,
	StatusInProcess,
	StatusDone,
	StatusUndone,
	StatusCanceled,
	StatusFailed,
	StatusRefundPending,
	StatusRefunded,
}

// Semantic maps a detailed status to its semantic bucket. The mapping is total:
// every detailed status belongs to exactly one bucket.
func (s DetailedStatus) Semantic() SemanticStatus {
	switch s {
	case StatusPending, StatusInProcess, StatusRefundPending:
		return SemanticProcessing
	case StatusDone:
		return SemanticSuccess
	case StatusUndone, StatusCanceled, StatusFailed:
		return SemanticFailed
	case StatusRefunded:
		return SemanticRefunded
	default:
		return SemanticProcessing
	}
}

// DetailedStatusesFor returns the set of detailed statuses belonging to a
// semantic bucket. Used to expand a semantic-status filter into an IN predicate.
func DetailedStatusesFor(s SemanticStatus) []DetailedStatus {
	switch s {
	case SemanticProcessing:
		return []DetailedStatus{StatusPending, StatusInProcess, StatusRefundPending}
	case SemanticSuccess:
		return []DetailedStatus{StatusDone}
	case SemanticFailed:
		return []DetailedStatus{StatusUndone, StatusCanceled, StatusFailed}
	case SemanticRefunded:
		return []DetailedStatus{StatusRefunded}
	default:
		return nil
	}
}

// IsTerminal reports whether the status is final. Terminal statuses are never
// regressed by late webhooks or stale reconciliation polls.
func (s DetailedStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusUndone, StatusCanceled, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether a status change from -> to is accepted.
// Non-terminal statuses accept any forward move. Terminal statuses are
// immutable, except that DONE opens the refund lifecycle
// (DONE -> REFUND_PENDING -> REFUNDED, or DONE -> REFUNDED directly when the
// provider never reported the intermediate state).
func CanTransition(from, to DetailedStatus) bool {
	if from == to {
		return false
	}
	if !from.IsTerminal() {
		return true
	}
	if from == StatusDone && (to == StatusRefundPending || to == StatusRefunded) {
		return true
	}
	return false
}

// TransitionableFrom returns every status from which `to` is reachable.
// Repositories use it to build the compare-and-set predicate of the status
// update statement.
func TransitionableFrom(to DetailedStatus) []DetailedStatus {
	var from []DetailedStatus
	for _, s := range DetailedStatuses {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}

// RailFamily identifies the external payment rail that produced an event.
// Each family has its own provider status vocabulary.
type RailFamily string

const (
	RailPix         RailFamily = "PIX"
	RailTed         RailFamily = "TED"
	RailBoleto      RailFamily = "BOLETO"
	RailBillPayment RailFamily = "BILL_PAYMENT"
)

var pixStatuses = map[string]DetailedStatus{
	"CREATED":        StatusPending,
	"IN_PROCESS":     StatusInProcess,
	"COMPLETED":      StatusDone,
	"DONE":           StatusDone,
	"CANCELED":       StatusCanceled,
	"ERROR":          StatusFailed,
	"FAILED":         StatusFailed,
	"REFUND_PENDING": StatusRefundPending,
	"REFUNDED":       StatusRefunded,
}

var tedStatuses = map[string]DetailedStatus{
	"CREATED":    StatusPending,
	"APPROVED":   StatusInProcess,
	"IN_PROCESS": StatusInProcess,
	"DONE":       StatusDone,
	"CANCELED":   StatusCanceled,
	"REPROVED":   StatusFailed,
	"UNDONE":     StatusUndone,
	"FAILED":     StatusFailed,
}

var boletoStatuses = map[string]DetailedStatus{
	"CREATED":    StatusPending,
	"REGISTERED": StatusInProcess,
	"SETTLED":    StatusDone,
	"PAID":       StatusDone,
	"CANCELLED":  StatusCanceled,
	"EXPIRED":    StatusUndone,
	"FAILED":     StatusFailed,
}

var billPaymentStatuses = map[string]DetailedStatus{
	"CREATED":    StatusPending,
	"VALIDATED":  StatusInProcess,
	"PROCESSING": StatusInProcess,
	"COMPLETED":  StatusDone,
	"CANCELED":   StatusCanceled,
	"FAILED":     StatusFailed,
	"REFUNDED":   StatusRefunded,
}

// MapProviderStatus maps a provider-reported status value to the canonical
// detailed status for the given rail family. Provider vocabularies evolve
// independently of this system, so unrecognized values map to PENDING and the
// returned bool is false so callers can log a warning instead of failing.
func MapProviderStatus(family RailFamily, providerStatus string) (DetailedStatus, bool) {
	var vocab map[string]DetailedStatus
	switch family {
	case RailPix:
		vocab = pixStatuses
	case RailTed:
		vocab = tedStatuses
	case RailBoleto:
		vocab = boletoStatuses
	case RailBillPayment:
		vocab = billPaymentStatuses
	default:
		return StatusPending, false
	}

	if s, ok := vocab[providerStatus]; ok {
		return s, true
	}
	return StatusPending, false
}
