package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/itsm-service/internal/api/dto"
	"github.com/deskops/itsm-service/internal/domain"
)

// WorkloadReader exposes the balancer's read side.
type WorkloadReader interface {
	ComputeWorkload(ctx context.Context, tenantID string) domain.WorkloadSnapshot
	SelectNextAgent(ctx context.Context, tenantID string) (string, bool)
}

// WorkloadHandler serves workload views.
type WorkloadHandler struct {
	balancer WorkloadReader
}

// NewWorkloadHandler constructs handler.
func NewWorkloadHandler(balancer WorkloadReader) *WorkloadHandler {
	return &WorkloadHandler{balancer: balancer}
}

// Snapshot GET /api/v1/workload.
func (h *WorkloadHandler) Snapshot(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	snapshot := h.balancer.ComputeWorkload(c.UserContext(), principal.TenantID)
	return c.JSON(fiber.Map{"data": dto.NewWorkloadResponse(snapshot)})
}

// Next POST /api/v1/workload/next.
func (h *WorkloadHandler) Next(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var resp dto.NextAgentResponse
	if agentID, ok := h.balancer.SelectNextAgent(c.UserContext(), principal.TenantID); ok {
		resp.AgentID = &agentID
	}
	return c.JSON(fiber.Map{"data": resp})
}
