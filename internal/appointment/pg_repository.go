package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

const (
	pgUniqueViolation     = "23505"
	pgExclusionViolation  = "23P01"
	pgForeignKeyViolation = "23503"

	activeSlotIndex = "appointments_active_slot_uidx"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

type pgTx struct {
	tx pgx.Tx
}

// Helpers

const availabilityColumns = `
	id, provider_id, date, start_time, end_time, timezone, slot_duration, break_duration,
	is_recurring, recurrence_pattern, recurrence_end_date, max_appointments_per_slot,
	status, appointment_type, location, pricing, notes, created_at, updated_at`

const slotColumns = `
	id, provider_id, availability_id, start_time, end_time, status, appointment_type,
	patient_id, booking_reference, created_at, updated_at`

const appointmentColumns = `
	id, appointment_number, patient_id, provider_id, slot_id, starts_at,
	appointment_date, appointment_time, duration_minutes, timezone, mode, appointment_type,
	status, payment_status, estimated_amount::text, actual_amount::text, currency,
	reason_for_visit, symptoms, medical_history_notes, special_instructions,
	emergency_contact, location_details, video_call_link, created_by,
	cancelled_at, cancellation_reason, cancelled_by, created_at, updated_at`

func pgClock(c schedule.Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c.Minutes()) * int64(time.Minute/time.Microsecond), Valid: true}
}

func clockFromPg(t pgtype.Time) schedule.Clock {
	minutes := int(t.Microseconds / int64(time.Minute/time.Microsecond))
	return schedule.Clock{Hour: minutes / 60, Minute: minutes % 60}
}

func pgDate(d schedule.Date) pgtype.Date {
	return pgtype.Date{Time: time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), Valid: true}
}

func pgNullDate(d *schedule.Date) pgtype.Date {
	if d == nil {
		return pgtype.Date{}
	}
	return pgDate(*d)
}

func decimalText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

func parseDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse amount %q: %w", *s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAvailability(row pgx.Row) (*AvailabilityWindow, error) {
	var a AvailabilityWindow
	var date pgtype.Date
	var recurrenceEnd pgtype.Date
	var start, end pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&date,
		&start,
		&end,
		&a.Timezone,
		&a.SlotDuration,
		&a.BreakDuration,
		&a.IsRecurring,
		&a.RecurrencePattern,
		&recurrenceEnd,
		&a.MaxAppointmentsPerSlot,
		&a.Status,
		&a.AppointmentType,
		&a.Location,
		&a.Pricing,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}

	a.Date = schedule.DateOf(date.Time)
	a.StartTime = clockFromPg(start)
	a.EndTime = clockFromPg(end)
	if recurrenceEnd.Valid {
		d := schedule.DateOf(recurrenceEnd.Time)
		a.RecurrenceEndDate = &d
	}
	return &a, nil
}

func scanSlot(row pgx.Row) (*AppointmentSlot, error) {
	var s AppointmentSlot

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.AvailabilityID,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.AppointmentType,
		&s.PatientID,
		&s.BookingReference,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date pgtype.Date
	var clock pgtype.Time
	var estimated, actual *string

	err := row.Scan(
		&a.ID,
		&a.Number,
		&a.PatientID,
		&a.ProviderID,
		&a.SlotID,
		&a.StartsAt,
		&date,
		&clock,
		&a.DurationMinutes,
		&a.Timezone,
		&a.Mode,
		&a.Type,
		&a.Status,
		&a.PaymentStatus,
		&estimated,
		&actual,
		&a.Currency,
		&a.ReasonForVisit,
		&a.Symptoms,
		&a.MedicalHistoryNotes,
		&a.SpecialInstructions,
		&a.EmergencyContact,
		&a.Location,
		&a.VideoCallLink,
		&a.CreatedBy,
		&a.CancelledAt,
		&a.CancellationReason,
		&a.CancelledBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.StartsAt = a.StartsAt.UTC()
	a.Date = schedule.DateOf(date.Time)
	a.Time = clockFromPg(clock)
	a.Currency = strings.TrimSpace(a.Currency)
	if a.EstimatedAmount, err = parseDecimal(estimated); err != nil {
		return nil, err
	}
	if a.ActualAmount, err = parseDecimal(actual); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanHistory(row pgx.Row) (*HistoryEntry, error) {
	var h HistoryEntry
	err := row.Scan(
		&h.ID,
		&h.AppointmentID,
		&h.Action,
		&h.Description,
		&h.PreviousValues,
		&h.NewValues,
		&h.PerformedBy,
		&h.PerformedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func getAppointment(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*Appointment, error) {
	sql := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanAppointment(q.QueryRow(ctx, sql, id))
}

// Interface methods

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, timezone, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAvailabilityByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+availabilityColumns+` FROM availabilities WHERE id = $1`, id)
	return scanAvailability(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*AppointmentSlot, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM appointment_slots WHERE id = $1`, id)
	return scanSlot(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return getAppointment(ctx, r.pool, id, false)
}

func (r *PgRepository) SearchSlots(ctx context.Context, f SlotFilter) ([]AppointmentSlot, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	add("start_time >= $%d", f.From)
	add("start_time < $%d", f.To)
	add("status = $%d", f.Status)
	if f.ProviderID != nil {
		add("provider_id = $%d", *f.ProviderID)
	}
	if f.AppointmentType != "" {
		add("appointment_type = $%d", f.AppointmentType)
	}
	if f.DurationMinutes > 0 {
		add("end_time - start_time = make_interval(mins => $%d)", f.DurationMinutes)
	}
	args = append(args, f.Limit)

	sql := fmt.Sprintf(`SELECT %s FROM appointment_slots WHERE %s ORDER BY start_time, provider_id LIMIT $%d`,
		slotColumns, strings.Join(where, " AND "), len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppointmentSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *PgRepository) CountSlotsByStatus(ctx context.Context, providerID uuid.UUID, from, to time.Time) (map[SlotStatus]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM appointment_slots
		WHERE provider_id = $1 AND start_time >= $2 AND start_time < $3
		GROUP BY status
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[SlotStatus]int)
	for rows.Next() {
		var status SlotStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *PgRepository) ListHistory(ctx context.Context, appointmentID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, action, description, previous_values, new_values, performed_by, performed_at
		FROM appointment_history
		WHERE appointment_id = $1
		ORDER BY performed_at DESC, id
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (r *PgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Transaction methods

func (t *pgTx) LockProvider(ctx context.Context, providerID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, providerID.String())
	return err
}

func (t *pgTx) InsertAvailability(ctx context.Context, a *AvailabilityWindow) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO availabilities (
			id, provider_id, date, start_time, end_time, timezone, slot_duration, break_duration,
			is_recurring, recurrence_pattern, recurrence_end_date, max_appointments_per_slot,
			status, appointment_type, location, pricing, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at
	`,
		a.ID, a.ProviderID, pgDate(a.Date), pgClock(a.StartTime), pgClock(a.EndTime), a.Timezone,
		a.SlotDuration, a.BreakDuration, a.IsRecurring, a.RecurrencePattern, pgNullDate(a.RecurrenceEndDate),
		a.MaxAppointmentsPerSlot, a.Status, a.AppointmentType, a.Location, a.Pricing, a.Notes,
	)
	return row.Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (t *pgTx) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		// appointments.slot_id is ON DELETE RESTRICT.
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation {
			return fmt.Errorf("%w: %v", ErrAvailabilityHasBookings, err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

func (t *pgTx) CountClaimedSlots(ctx context.Context, availabilityID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT count(*) FROM appointment_slots s
		WHERE s.availability_id = $1
		  AND (s.status = 'booked' OR EXISTS (SELECT 1 FROM appointments a WHERE a.slot_id = s.id))
	`, availabilityID).Scan(&n)
	return n, err
}

func (t *pgTx) ListOccupiedIntervals(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]schedule.Interval, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT start_time, end_time
		FROM appointment_slots
		WHERE provider_id = $1 AND status <> 'cancelled' AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertSlot(ctx context.Context, s *AppointmentSlot) error {
	// A constraint violation aborts the enclosing transaction, so each insert
	// runs under its own savepoint.
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	defer func() { _ = sp.Rollback(ctx) }()

	err = sp.QueryRow(ctx, `
		INSERT INTO appointment_slots (id, provider_id, availability_id, start_time, end_time, status, appointment_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, s.ID, s.ProviderID, s.AvailabilityID, s.StartTime, s.EndTime, s.Status, s.AppointmentType).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if code, _ := pgErrorCode(err); code == pgExclusionViolation || code == pgUniqueViolation {
		return fmt.Errorf("%w: %v", ErrConflictDetected, err)
	}
	if err != nil {
		return err
	}
	return sp.Commit(ctx)
}

func (t *pgTx) ClaimSlot(ctx context.Context, slotID, providerID, patientID uuid.UUID, reference string) (*AppointmentSlot, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointment_slots
		SET status = 'booked', patient_id = $3, booking_reference = $4, updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND status = 'available'
		RETURNING `+slotColumns,
		slotID, providerID, patientID, reference,
	)
	s, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		var exists bool
		if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointment_slots WHERE id = $1)`, slotID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrSlotNotFound
		}
		return nil, ErrSlotUnavailable
	}
	return s, err
}

func (t *pgTx) ReleaseSlot(ctx context.Context, slotID uuid.UUID, to SlotStatus) (*AppointmentSlot, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointment_slots
		SET status = $2, patient_id = NULL, booking_reference = NULL, updated_at = now()
		WHERE id = $1 AND status = 'booked'
		RETURNING `+slotColumns,
		slotID, to,
	)
	s, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, ErrStaleWrite
	}
	return s, err
}

func (t *pgTx) UpdateSlotStatus(ctx context.Context, slotID uuid.UUID, from, to SlotStatus) (*AppointmentSlot, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointment_slots
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+slotColumns,
		slotID, from, to,
	)
	s, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, ErrStaleWrite
	}
	// reviving a cancelled slot can collide with slots generated since
	if code, _ := pgErrorCode(err); code == pgExclusionViolation || code == pgUniqueViolation {
		return nil, fmt.Errorf("%w: %v", ErrConflictDetected, err)
	}
	return s, err
}

func (t *pgTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return getAppointment(ctx, t.tx, id, true)
}

func (t *pgTx) GetAppointmentBySlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE slot_id = $1 AND status <> 'cancelled'
		FOR UPDATE
	`, slotID)
	return scanAppointment(row)
}

func (t *pgTx) InsertAppointment(ctx context.Context, a *Appointment) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, appointment_number, patient_id, provider_id, slot_id, starts_at,
			appointment_date, appointment_time, duration_minutes, timezone, mode, appointment_type,
			status, payment_status, estimated_amount, actual_amount, currency,
			reason_for_visit, symptoms, medical_history_notes, special_instructions,
			emergency_contact, location_details, video_call_link, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15::numeric, $16::numeric, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		ON CONFLICT (appointment_number) DO NOTHING
		RETURNING created_at, updated_at
	`,
		a.ID, a.Number, a.PatientID, a.ProviderID, a.SlotID, a.StartsAt,
		pgDate(a.Date), pgClock(a.Time), a.DurationMinutes, a.Timezone, a.Mode, a.Type,
		a.Status, a.PaymentStatus, decimalText(a.EstimatedAmount), decimalText(a.ActualAmount), a.Currency,
		a.ReasonForVisit, a.Symptoms, a.MedicalHistoryNotes, a.SpecialInstructions,
		a.EmergencyContact, a.Location, a.VideoCallLink, a.CreatedBy,
	)

	err := row.Scan(&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateNumber
	}
	if code, constraint := pgErrorCode(err); code == pgUniqueViolation && constraint == activeSlotIndex {
		return ErrSlotUnavailable
	}
	return err
}

func (t *pgTx) UpdateAppointment(ctx context.Context, a *Appointment, expected AppointmentStatus) error {
	row := t.tx.QueryRow(ctx, `
		UPDATE appointments SET
			slot_id = $3,
			starts_at = $4,
			appointment_date = $5,
			appointment_time = $6,
			duration_minutes = $7,
			timezone = $8,
			status = $9,
			payment_status = $10,
			actual_amount = $11::numeric,
			special_instructions = $12,
			location_details = $13,
			video_call_link = $14,
			cancelled_at = $15,
			cancellation_reason = $16,
			cancelled_by = $17,
			updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING updated_at
	`,
		a.ID, expected, a.SlotID, a.StartsAt, pgDate(a.Date), pgClock(a.Time), a.DurationMinutes,
		a.Timezone, a.Status, a.PaymentStatus, decimalText(a.ActualAmount), a.SpecialInstructions,
		a.Location, a.VideoCallLink, a.CancelledAt, a.CancellationReason, a.CancelledBy,
	)

	err := row.Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleWrite
	}
	if code, constraint := pgErrorCode(err); code == pgUniqueViolation && constraint == activeSlotIndex {
		return ErrSlotUnavailable
	}
	return err
}

func (t *pgTx) InsertHistory(ctx context.Context, h *HistoryEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointment_history (
			id, appointment_id, action, description, previous_values, new_values, performed_by, performed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.AppointmentID, h.Action, h.Description, h.PreviousValues, h.NewValues, h.PerformedBy, h.PerformedAt)
	return err
}

// Directory access used by seeding and the simulator

func (r *PgRepository) CreateProvider(ctx context.Context, p *Provider) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO providers (id, name, specialty, timezone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Specialty, p.Timezone).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, name, email)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Email).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PgRepository) ListPatientIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return listIDs(ctx, r.pool, `SELECT id FROM patients ORDER BY created_at LIMIT $1`, limit)
}

func listIDs(ctx context.Context, q querier, sql string, limit int) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
