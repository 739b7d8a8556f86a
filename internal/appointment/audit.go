package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// snapshot captures the audited fields of an appointment as comparable strings.
func snapshot(a *Appointment) map[string]any {
	s := map[string]any{
		"status":           string(a.Status),
		"payment_status":   string(a.PaymentStatus),
		"mode":             string(a.Mode),
		"starts_at":        a.StartsAt.UTC().Format(time.RFC3339),
		"date":             a.Date.String(),
		"time":             a.Time.String(),
		"duration_minutes": a.DurationMinutes,
		"timezone":         a.Timezone,
	}
	if a.SlotID != nil {
		s["slot_id"] = a.SlotID.String()
	}
	if a.CancelledAt != nil {
		s["cancelled_at"] = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	if a.CancellationReason != nil {
		s["cancellation_reason"] = *a.CancellationReason
	}
	if a.CancelledBy != nil {
		s["cancelled_by"] = *a.CancelledBy
	}
	if a.ActualAmount.Valid {
		s["actual_amount"] = a.ActualAmount.Decimal.String()
	}
	return s
}

// diff keeps only keys whose values differ. A key missing on one side is recorded as nil.
func diff(before, after map[string]any) (prev, next map[string]any) {
	prev, next = map[string]any{}, map[string]any{}
	for k, v := range after {
		if old, ok := before[k]; !ok || old != v {
			prev[k] = before[k]
			next[k] = v
		}
	}
	for k, v := range before {
		if _, ok := after[k]; !ok {
			prev[k] = v
			next[k] = nil
		}
	}
	return prev, next
}

func recordCreated(ctx context.Context, tx Tx, a *Appointment, actor string, at time.Time) error {
	return tx.InsertHistory(ctx, &HistoryEntry{
		ID:             uuid.New(),
		AppointmentID:  a.ID,
		Action:         ActionCreated,
		Description:    fmt.Sprintf("Appointment %s booked", a.Number),
		PreviousValues: map[string]any{},
		NewValues:      snapshot(a),
		PerformedBy:    actor,
		PerformedAt:    at,
	})
}

func recordChange(ctx context.Context, tx Tx, before, after *Appointment, action HistoryAction, description, actor string, at time.Time) error {
	prev, next := diff(snapshot(before), snapshot(after))
	return tx.InsertHistory(ctx, &HistoryEntry{
		ID:             uuid.New(),
		AppointmentID:  after.ID,
		Action:         action,
		Description:    description,
		PreviousValues: prev,
		NewValues:      next,
		PerformedBy:    actor,
		PerformedAt:    at,
	})
}
