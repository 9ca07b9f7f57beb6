package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetailedStatus_SemanticIsTotal(t *testing.T) {
	// Every detailed status lands in exactly one bucket
	buckets := map[SemanticStatus][]DetailedStatus{}
	for _, s := range DetailedStatuses {
		sem := s.Semantic()
		buckets[sem] = append(buckets[sem], s)
	}

	assert.ElementsMatch(t, []DetailedStatus{StatusPending, StatusInProcess, StatusRefundPending}, buckets[SemanticProcessing])
	assert.ElementsMatch(t, []DetailedStatus{StatusDone}, buckets[SemanticSuccess])
	assert.ElementsMatch(t, []DetailedStatus{StatusUndone, StatusCanceled, StatusFailed}, buckets[SemanticFailed])
	assert.ElementsMatch(t, []DetailedStatus{StatusRefunded}, buckets[SemanticRefunded])
}

func TestDetailedStatusesFor_RoundTrips(t *testing.T) {
	for _, sem := range []SemanticStatus{SemanticProcessing, SemanticSuccess, SemanticFailed, SemanticRefunded} {
		for _, s := range DetailedStatusesFor(sem) {
			assert.Equal(t, sem, s.Semantic(), "detailed status %s should map back to %s", s, sem)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from DetailedStatus
		to   DetailedStatus
		want bool
	}{
		{"pending to in process", StatusPending, StatusInProcess, true},
		{"pending straight to done", StatusPending, StatusDone, true},
		{"in process to failed", StatusInProcess, StatusFailed, true},
		{"self transition is a no-op", StatusInProcess, StatusInProcess, false},
		{"done opens refund lifecycle", StatusDone, StatusRefundPending, true},
		{"done straight to refunded", StatusDone, StatusRefunded, true},
		{"refund pending completes", StatusRefundPending, StatusRefunded, true},
		{"done never regresses", StatusDone, StatusInProcess, false},
		{"done never fails after the fact", StatusDone, StatusFailed, false},
		{"failed is immutable", StatusFailed, StatusDone, false},
		{"canceled is immutable", StatusCanceled, StatusPending, false},
		{"undone is immutable", StatusUndone, StatusDone, false},
		{"refunded is immutable", StatusRefunded, StatusDone, false},
		{"refund pending can still fail", StatusRefundPending, StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransitionableFrom_MatchesTransitionTable(t *testing.T) {
	for _, to := range DetailedStatuses {
		from := TransitionableFrom(to)
		for _, f := range from {
			assert.True(t, CanTransition(f, to))
		}
		// Nothing reachable is missing
		for _, s := range DetailedStatuses {
			if CanTransition(s, to) {
				assert.Contains(t, from, s)
			}
		}
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		family         RailFamily
		providerStatus string
		want           DetailedStatus
		known          bool
	}{
		{RailPix, "COMPLETED", StatusDone, true},
		{RailPix, "REFUND_PENDING", StatusRefundPending, true},
		{RailTed, "APPROVED", StatusInProcess, true},
		{RailTed, "REPROVED", StatusFailed, true},
		{RailTed, "UNDONE", StatusUndone, true},
		{RailBoleto, "SETTLED", StatusDone, true},
		{RailBoleto, "EXPIRED", StatusUndone, true},
		{RailBillPayment, "VALIDATED", StatusInProcess, true},
		{RailBillPayment, "REFUNDED", StatusRefunded, true},
		// Vocabulary drift falls back to pending without failing
		{RailPix, "SOMETHING_NEW", StatusPending, false},
		{RailFamily("CHEQUE"), "DONE", StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.family)+"/"+tt.providerStatus, func(t *testing.T) {
			got, known := MapProviderStatus(tt.family, tt.providerStatus)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInProcess.IsTerminal())
	assert.False(t, StatusRefundPending.IsTerminal())
	assert.True(t, StatusDone.IsTerminal())
	assert.True(t, StatusUndone.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
}
