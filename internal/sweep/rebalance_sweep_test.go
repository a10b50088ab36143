package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

type fakeAssigner struct {
	calls []string
	errs  map[string]error
}

func (f *fakeAssigner) AutoAssign(_ context.Context, ticketID, _ string, _ service.AssignmentKind) (*domain.Assignment, error) {
	f.calls = append(f.calls, ticketID)
	if err := f.errs[ticketID]; err != nil {
		return nil, err
	}
	return &domain.Assignment{TicketID: ticketID}, nil
}

func TestRebalanceAssignsOldestFirst(t *testing.T) {
	// ListUnassignedOpen orders by created_at; the sweep must keep that order.
	tickets := &fakeTicketRepo{unassigned: []domain.Ticket{
		{ID: "ticket-old", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-2 * time.Hour)},
		{ID: "ticket-mid", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-time.Hour)},
		{ID: "ticket-new", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-time.Minute)},
	}}
	assigner := &fakeAssigner{}
	sweep := NewRebalanceSweep(tickets, assigner, zap.NewNop())

	require.NoError(t, sweep.Run(context.Background()))
	assert.Equal(t, []string{"ticket-old", "ticket-mid", "ticket-new"}, assigner.calls)
}

func TestRebalanceStopsWhenNoAgentsAvailable(t *testing.T) {
	tickets := &fakeTicketRepo{unassigned: []domain.Ticket{
		{ID: "ticket-1", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-2 * time.Hour)},
		{ID: "ticket-2", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-time.Hour)},
	}}
	assigner := &fakeAssigner{errs: map[string]error{
		"ticket-1": apperrors.NewNoAgentsAvailable(nil),
	}}
	sweep := NewRebalanceSweep(tickets, assigner, zap.NewNop())

	require.NoError(t, sweep.Run(context.Background()),
		"an empty agent pool ends the cycle cleanly")
	assert.Equal(t, []string{"ticket-1"}, assigner.calls,
		"no agent will appear mid-cycle, so the backlog waits for the next run")
}

func TestRebalanceSkipsConcurrentlyClaimedTickets(t *testing.T) {
	tickets := &fakeTicketRepo{unassigned: []domain.Ticket{
		{ID: "ticket-claimed", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-2 * time.Hour)},
		{ID: "ticket-free", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-time.Hour)},
	}}
	assigner := &fakeAssigner{errs: map[string]error{
		"ticket-claimed": apperrors.NewConflict("ticket already assigned", nil),
	}}
	sweep := NewRebalanceSweep(tickets, assigner, zap.NewNop())

	require.NoError(t, sweep.Run(context.Background()))
	assert.Equal(t, []string{"ticket-claimed", "ticket-free"}, assigner.calls,
		"a conflict skips the ticket without ending the cycle")
}

func TestRebalanceRunSkipsWhileCycleInFlight(t *testing.T) {
	tickets := &fakeTicketRepo{unassigned: []domain.Ticket{
		{ID: "ticket-1", Status: domain.TicketStatusNew, CreatedAt: sweepNow},
	}}
	assigner := &fakeAssigner{}
	sweep := NewRebalanceSweep(tickets, assigner, zap.NewNop())

	sweep.mu.Lock()
	defer sweep.mu.Unlock()

	require.NoError(t, sweep.Run(context.Background()))
	assert.Empty(t, assigner.calls)
}
