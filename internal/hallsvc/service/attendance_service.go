package service

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/negasi/billiard-services/internal/hallsvc/audit"
	"github.com/negasi/billiard-services/internal/hallsvc/models"
	"github.com/negasi/billiard-services/internal/hallsvc/syncer"
)

// AttendanceService tracks staff shifts. Day listings use the same
// 08:00-to-08:00 business-day window as the table audit.
type AttendanceService struct {
	mu      sync.Mutex
	records []*models.Attendance
	sync    *syncer.Syncer
}

func NewAttendanceService(sy *syncer.Syncer) *AttendanceService {
	a := &AttendanceService{sync: sy}
	if sy != nil {
		sy.Register("attendance", a.snapshot, a.applySnapshot)
	}
	return a
}

func (a *AttendanceService) CheckIn(staffID, name string) (*models.Attendance, error) {
	a.mu.Lock()
	for _, rec := range a.records {
		if rec.StaffID == staffID && rec.Open() {
			a.mu.Unlock()
			return nil, ErrShiftOpen
		}
	}

	rec := &models.Attendance{
		ID:      uuid.New().String(),
		StaffID: staffID,
		Name:    name,
		CheckIn: time.Now(),
	}
	a.records = append(a.records, rec)
	a.mu.Unlock()

	a.dirty()
	return rec, nil
}

func (a *AttendanceService) CheckOut(staffID string) (*models.Attendance, error) {
	a.mu.Lock()
	for _, rec := range a.records {
		if rec.StaffID == staffID && rec.Open() {
			rec.CheckOut = time.Now()
			a.mu.Unlock()
			a.dirty()
			return rec, nil
		}
	}
	a.mu.Unlock()

	return nil, ErrNoShiftOpen
}

// ListDay returns the shifts whose check-in falls in the business day
// containing day, newest first.
func (a *AttendanceService) ListDay(day time.Time) []*models.Attendance {
	from, to := audit.DayWindow(day)

	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*models.Attendance
	for _, rec := range a.records {
		if rec.CheckIn.Before(from) || !rec.CheckIn.Before(to) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.After(out[j].CheckIn) })
	return out
}

func (a *AttendanceService) dirty() {
	if a.sync != nil {
		a.sync.Dirty("attendance")
	}
}

func (a *AttendanceService) snapshot() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return json.Marshal(a.records)
}

func (a *AttendanceService) applySnapshot(data []byte) error {
	var incoming []*models.Attendance
	if err := json.Unmarshal(data, &incoming); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = a.records[:0]
	for _, rec := range incoming {
		if rec == nil || rec.ID == "" {
			continue
		}
		a.records = append(a.records, rec)
	}
	return nil
}
