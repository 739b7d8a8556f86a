package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-availability-booking/internal/schedule"
)

// memState mirrors the tables; values are copied so a failed transaction leaves no trace.
type memState struct {
	providers map[uuid.UUID]Provider
	patients  map[uuid.UUID]Patient
	avails    map[uuid.UUID]AvailabilityWindow
	slots     map[uuid.UUID]AppointmentSlot
	appts     map[uuid.UUID]Appointment
	history   []HistoryEntry
}

func (s *memState) clone() *memState {
	c := &memState{
		providers: make(map[uuid.UUID]Provider, len(s.providers)),
		patients:  make(map[uuid.UUID]Patient, len(s.patients)),
		avails:    make(map[uuid.UUID]AvailabilityWindow, len(s.avails)),
		slots:     make(map[uuid.UUID]AppointmentSlot, len(s.slots)),
		appts:     make(map[uuid.UUID]Appointment, len(s.appts)),
		history:   append([]HistoryEntry(nil), s.history...),
	}
	for k, v := range s.providers {
		c.providers[k] = v
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.avails {
		c.avails[k] = v
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for k, v := range s.appts {
		c.appts[k] = v
	}
	return c
}

// memRepo is an in-memory Repository. Transactions run one at a time.
type memRepo struct {
	mu    sync.Mutex
	state *memState
}

func newMemRepo() *memRepo {
	return &memRepo{state: (&memState{}).clone()}
}

func (r *memRepo) addProvider(name, tz string) Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Provider{ID: uuid.New(), Name: name, Timezone: tz}
	r.state.providers[p.ID] = p
	return p
}

func (r *memRepo) addPatient(name string) Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Patient{ID: uuid.New(), Name: name}
	r.state.patients[p.ID] = p
	return p
}

func (r *memRepo) slot(id uuid.UUID) AppointmentSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.slots[id]
}

func (r *memRepo) slotsOf(availabilityID uuid.UUID) []AppointmentSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AppointmentSlot
	for _, s := range r.state.slots {
		if s.AvailabilityID == availabilityID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (r *memRepo) liveSlotsOfProvider(providerID uuid.UUID) []AppointmentSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AppointmentSlot
	for _, s := range r.state.slots {
		if s.ProviderID == providerID && s.Status != SlotCancelled {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (r *memRepo) countAvailabilities() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.avails)
}

func (r *memRepo) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.state.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.state.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *memRepo) GetAvailabilityByID(_ context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.state.avails[id]
	if !ok {
		return nil, ErrAvailabilityNotFound
	}
	return &a, nil
}

func (r *memRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*AppointmentSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.state.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.state.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) SearchSlots(_ context.Context, f SlotFilter) ([]AppointmentSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AppointmentSlot
	for _, s := range r.state.slots {
		if s.StartTime.Before(f.From) || !s.StartTime.Before(f.To) || s.Status != f.Status {
			continue
		}
		if f.ProviderID != nil && s.ProviderID != *f.ProviderID {
			continue
		}
		if f.AppointmentType != "" && s.AppointmentType != f.AppointmentType {
			continue
		}
		if f.DurationMinutes > 0 && s.DurationMinutes() != f.DurationMinutes {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memRepo) CountSlotsByStatus(_ context.Context, providerID uuid.UUID, from, to time.Time) (map[SlotStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[SlotStatus]int{}
	for _, s := range r.state.slots {
		if s.ProviderID == providerID && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			counts[s.Status]++
		}
	}
	return counts, nil
}

func (r *memRepo) ListHistory(_ context.Context, appointmentID uuid.UUID) ([]HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []HistoryEntry
	for i := len(r.state.history) - 1; i >= 0; i-- {
		if r.state.history[i].AppointmentID == appointmentID {
			out = append(out, r.state.history[i])
		}
	}
	return out, nil
}

func (r *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.state.clone()
	if err := fn(ctx, &memTx{s: work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

type memTx struct {
	s *memState
}

func (t *memTx) LockProvider(context.Context, uuid.UUID) error { return nil }

func (t *memTx) InsertAvailability(_ context.Context, a *AvailabilityWindow) error {
	t.s.avails[a.ID] = *a
	return nil
}

func (t *memTx) DeleteAvailability(_ context.Context, id uuid.UUID) error {
	if _, ok := t.s.avails[id]; !ok {
		return ErrAvailabilityNotFound
	}
	// Mirrors the RESTRICT foreign key from appointments to slots.
	for _, a := range t.s.appts {
		if a.SlotID == nil {
			continue
		}
		if s, ok := t.s.slots[*a.SlotID]; ok && s.AvailabilityID == id {
			return ErrAvailabilityHasBookings
		}
	}
	delete(t.s.avails, id)
	for sid, s := range t.s.slots {
		if s.AvailabilityID == id {
			delete(t.s.slots, sid)
		}
	}
	return nil
}

func (t *memTx) CountClaimedSlots(_ context.Context, availabilityID uuid.UUID) (int, error) {
	referenced := make(map[uuid.UUID]bool)
	for _, a := range t.s.appts {
		if a.SlotID != nil {
			referenced[*a.SlotID] = true
		}
	}
	n := 0
	for _, s := range t.s.slots {
		if s.AvailabilityID == availabilityID && (s.Status == SlotBooked || referenced[s.ID]) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ListOccupiedIntervals(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]schedule.Interval, error) {
	var out []schedule.Interval
	for _, s := range t.s.slots {
		if s.ProviderID == providerID && s.Status != SlotCancelled && s.StartTime.Before(to) && s.EndTime.After(from) {
			out = append(out, s.Interval())
		}
	}
	return out, nil
}

func (t *memTx) overlapsLive(s AppointmentSlot) bool {
	for _, other := range t.s.slots {
		if other.ID == s.ID || other.ProviderID != s.ProviderID || other.Status == SlotCancelled {
			continue
		}
		if schedule.Overlaps(other.Interval(), s.Interval()) {
			return true
		}
	}
	return false
}

func (t *memTx) InsertSlot(_ context.Context, s *AppointmentSlot) error {
	if t.overlapsLive(*s) {
		return ErrConflictDetected
	}
	t.s.slots[s.ID] = *s
	return nil
}

func (t *memTx) ClaimSlot(_ context.Context, slotID, providerID, patientID uuid.UUID, reference string) (*AppointmentSlot, error) {
	s, ok := t.s.slots[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if s.Status != SlotAvailable || s.ProviderID != providerID {
		return nil, ErrSlotUnavailable
	}
	s.Status = SlotBooked
	s.PatientID = &patientID
	s.BookingReference = &reference
	t.s.slots[slotID] = s
	return &s, nil
}

func (t *memTx) ReleaseSlot(_ context.Context, slotID uuid.UUID, to SlotStatus) (*AppointmentSlot, error) {
	s, ok := t.s.slots[slotID]
	if !ok || s.Status != SlotBooked {
		return nil, ErrStaleWrite
	}
	s.Status = to
	s.PatientID = nil
	s.BookingReference = nil
	t.s.slots[slotID] = s
	return &s, nil
}

func (t *memTx) UpdateSlotStatus(_ context.Context, slotID uuid.UUID, from, to SlotStatus) (*AppointmentSlot, error) {
	s, ok := t.s.slots[slotID]
	if !ok || s.Status != from {
		return nil, ErrStaleWrite
	}
	s.Status = to
	if from == SlotCancelled && t.overlapsLive(s) {
		return nil, ErrConflictDetected
	}
	t.s.slots[slotID] = s
	return &s, nil
}

func (t *memTx) GetAppointmentForUpdate(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := t.s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (t *memTx) GetAppointmentBySlot(_ context.Context, slotID uuid.UUID) (*Appointment, error) {
	for _, a := range t.s.appts {
		if a.SlotID != nil && *a.SlotID == slotID && a.Status != StatusCancelled {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (t *memTx) activeLink(slotID *uuid.UUID, except uuid.UUID) bool {
	if slotID == nil {
		return false
	}
	for _, a := range t.s.appts {
		if a.ID != except && a.SlotID != nil && *a.SlotID == *slotID && a.Status.HoldsSlot() {
			return true
		}
	}
	return false
}

func (t *memTx) InsertAppointment(_ context.Context, a *Appointment) error {
	for _, other := range t.s.appts {
		if other.Number == a.Number {
			return ErrDuplicateNumber
		}
	}
	if t.activeLink(a.SlotID, a.ID) {
		return ErrSlotUnavailable
	}
	t.s.appts[a.ID] = *a
	return nil
}

func (t *memTx) UpdateAppointment(_ context.Context, a *Appointment, expected AppointmentStatus) error {
	cur, ok := t.s.appts[a.ID]
	if !ok || cur.Status != expected {
		return ErrStaleWrite
	}
	if a.Status.HoldsSlot() && t.activeLink(a.SlotID, a.ID) {
		return ErrSlotUnavailable
	}
	t.s.appts[a.ID] = *a
	return nil
}

func (t *memTx) InsertHistory(_ context.Context, h *HistoryEntry) error {
	t.s.history = append(t.s.history, *h)
	return nil
}
