package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civicgrid/grievance-engine/internal/clock"
	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/database"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
)

// SLAScanHandler finds clock-running complaints whose SLA deadline has passed,
// flags the breach, and auto-escalates them when configured. The store query
// excludes already-flagged and awaiting_supervisor complaints, so re-scanning
// is a no-op.
type SLAScanHandler struct {
	store     database.ComplaintStore
	engine    *lifecycle.Engine
	sla       config.SLAConfig
	batchSize int
	clock     clock.Clock
	logger    *slog.Logger
}

// NewSLAScanHandler creates the SLA breach scan.
func NewSLAScanHandler(
	store database.ComplaintStore,
	engine *lifecycle.Engine,
	sla config.SLAConfig,
	batchSize int,
	clk clock.Clock,
	logger *slog.Logger,
) *SLAScanHandler {
	return &SLAScanHandler{
		store:     store,
		engine:    engine,
		sla:       sla,
		batchSize: batchSize,
		clock:     clk,
		logger:    logger,
	}
}

// Execute performs one SLA breach scan. Failures on individual complaints are
// logged and skipped so one bad record does not halt the scan.
func (h *SLAScanHandler) Execute(ctx context.Context) error {
	now := h.clock.Now()
	overdue, err := h.store.ListSLAOverdue(ctx, now, h.batchSize)
	if err != nil {
		return fmt.Errorf("sla scan: %w", err)
	}

	flagged, escalated, failed := 0, 0, 0
	for _, complaint := range overdue {
		didFlag, err := h.engine.FlagSLABreach(ctx, complaint.ID)
		if err != nil {
			failed++
			h.logger.Error("Failed to flag SLA breach",
				"complaint_id", complaint.ID, "error", err)
			continue
		}
		if didFlag {
			flagged++
		}

		if !h.sla.AutoEscalate {
			continue
		}
		if _, err := h.engine.Escalate(ctx, complaint.ID, lifecycle.SystemActor); err != nil {
			var invalid *lifecycle.InvalidTransitionError
			if errors.As(err, &invalid) {
				// Raced with a manual escalation or resolution; nothing to do.
				continue
			}
			failed++
			h.logger.Error("Failed to auto-escalate breached complaint",
				"complaint_id", complaint.ID, "error", err)
			continue
		}
		escalated++
	}

	if flagged > 0 || escalated > 0 || failed > 0 {
		h.logger.Info("SLA scan completed",
			"scanned", len(overdue),
			"flagged", flagged,
			"escalated", escalated,
			"failed", failed)
	}
	return nil
}

// GetName returns the handler name
func (h *SLAScanHandler) GetName() string {
	return "sla_breach_scan"
}

// SupervisorScanHandler finds awaiting_supervisor complaints whose review
// deadline has passed and raises the overdue signal for the supervisor
// dashboard. No state transition happens here: a human must act.
type SupervisorScanHandler struct {
	store     database.ComplaintStore
	engine    *lifecycle.Engine
	batchSize int
	clock     clock.Clock
	logger    *slog.Logger
}

// NewSupervisorScanHandler creates the supervisor review overdue scan.
func NewSupervisorScanHandler(
	store database.ComplaintStore,
	engine *lifecycle.Engine,
	batchSize int,
	clk clock.Clock,
	logger *slog.Logger,
) *SupervisorScanHandler {
	return &SupervisorScanHandler{
		store:     store,
		engine:    engine,
		batchSize: batchSize,
		clock:     clk,
		logger:    logger,
	}
}

// Execute performs one supervisor-overdue scan with per-complaint failure
// isolation.
func (h *SupervisorScanHandler) Execute(ctx context.Context) error {
	now := h.clock.Now()
	overdue, err := h.store.ListReviewOverdue(ctx, now, h.batchSize)
	if err != nil {
		return fmt.Errorf("supervisor scan: %w", err)
	}

	flagged, failed := 0, 0
	for _, complaint := range overdue {
		didFlag, err := h.engine.FlagSupervisorOverdue(ctx, complaint.ID)
		if err != nil {
			failed++
			h.logger.Error("Failed to flag overdue supervisor review",
				"complaint_id", complaint.ID, "error", err)
			continue
		}
		if didFlag {
			flagged++
		}
	}

	if flagged > 0 || failed > 0 {
		h.logger.Info("Supervisor review scan completed",
			"scanned", len(overdue),
			"flagged", flagged,
			"failed", failed)
	}
	return nil
}

// GetName returns the handler name
func (h *SupervisorScanHandler) GetName() string {
	return "supervisor_review_scan"
}
