package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/observability"
	"github.com/deskops/itsm-service/internal/repository"
)

// WorkloadBalancer picks the least busy agent of a tenant. Every call reads a fresh
// snapshot; two concurrent creations may pick the same agent.
type WorkloadBalancer struct {
	agents  repository.AgentRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

// WorkloadDependencies bundles collaborators.
type WorkloadDependencies struct {
	AgentRepo  repository.AgentRepository
	TicketRepo repository.TicketRepository
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewWorkloadBalancer creates the balancer.
func NewWorkloadBalancer(deps WorkloadDependencies) *WorkloadBalancer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadBalancer{
		agents:  deps.AgentRepo,
		tickets: deps.TicketRepo,
		logger:  logger,
		metrics: deps.Metrics,
	}
}

// LoadWorkload builds the snapshot and reports persistence failures.
// A tenant without eligible agents yields an empty snapshot and no error.
func (b *WorkloadBalancer) LoadWorkload(ctx context.Context, tenantID string) (domain.WorkloadSnapshot, error) {
	agents, err := b.agents.ListEligible(ctx, tenantID)
	if err != nil {
		return domain.WorkloadSnapshot{}, fmt.Errorf("list eligible agents: %w", err)
	}

	snapshot := make(domain.WorkloadSnapshot, len(agents))
	for _, agent := range agents {
		if agent.Role.Eligible() {
			snapshot[agent.ID] = 0
		}
	}
	if snapshot.Empty() {
		return snapshot, nil
	}

	for _, category := range domain.TicketCategories {
		counts, err := b.tickets.CountOpenByAssignee(ctx, tenantID, category)
		if err != nil {
			return domain.WorkloadSnapshot{}, fmt.Errorf("count open %s tickets: %w", category, err)
		}
		for agentID, n := range counts {
			if _, eligible := snapshot[agentID]; eligible {
				snapshot[agentID] += n
			}
		}
	}
	return snapshot, nil
}

// ComputeWorkload is LoadWorkload that fails open: errors are logged and an
// empty snapshot is returned.
func (b *WorkloadBalancer) ComputeWorkload(ctx context.Context, tenantID string) domain.WorkloadSnapshot {
	snapshot, err := b.LoadWorkload(ctx, tenantID)
	if err != nil {
		b.logger.Error("compute workload failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return domain.WorkloadSnapshot{}
	}
	return snapshot
}

// SelectNextAgent returns the least loaded agent, or false when no recommendation exists.
func (b *WorkloadBalancer) SelectNextAgent(ctx context.Context, tenantID string) (string, bool) {
	return PickLeastLoaded(b.ComputeWorkload(ctx, tenantID))
}

// AutoAssign is the entry point for ticket creation.
func (b *WorkloadBalancer) AutoAssign(ctx context.Context, tenantID string) (string, bool) {
	return b.assign(ctx, tenantID, nil)
}

// Reassign picks a new assignee for an open ticket currently held by current.
// That ticket is already part of current's count, so it is discounted first, and
// current keeps the ticket when it ties for the minimum.
func (b *WorkloadBalancer) Reassign(ctx context.Context, tenantID string, current *string) (string, bool) {
	return b.assign(ctx, tenantID, current)
}

func (b *WorkloadBalancer) assign(ctx context.Context, tenantID string, current *string) (string, bool) {
	snapshot, err := b.LoadWorkload(ctx, tenantID)
	if err != nil {
		b.logger.Error("compute workload failed", zap.String("tenant_id", tenantID), zap.Error(err))
		b.metrics.RecordAssignment(observability.OutcomeError)
		return "", false
	}
	agentID, ok := PickLeastLoaded(snapshot)
	if ok && current != nil {
		if n, eligible := snapshot[*current]; eligible {
			if n > 0 {
				n--
				snapshot[*current] = n
			}
			if n <= snapshot[agentID] {
				agentID = *current
			}
		}
	}
	if !ok {
		b.metrics.RecordAssignment(observability.OutcomeUnassigned)
		return "", false
	}
	b.metrics.RecordAssignment(observability.OutcomeAssigned)
	b.logger.Debug("auto-assigned",
		zap.String("tenant_id", tenantID),
		zap.String("agent_id", agentID),
		zap.Int("open_tickets", snapshot[agentID]))
	return agentID, true
}

// PickLeastLoaded returns the agent with the fewest open tickets. Ties go to the
// smallest agent ID so the choice is reproducible.
func PickLeastLoaded(snapshot domain.WorkloadSnapshot) (string, bool) {
	best := ""
	found := false
	for agentID, n := range snapshot {
		if !found || n < snapshot[best] || (n == snapshot[best] && agentID < best) {
			best = agentID
			found = true
		}
	}
	return best, found
}
