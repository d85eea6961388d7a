package models

import (
	"time"
)

// Attendance is one staff shift record. A shift is open while CheckOut is
// the zero time.
type Attendance struct {
	ID       string    `json:"id"`
	StaffID  string    `json:"staff_id"`
	Name     string    `json:"name"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out,omitempty"`
}

func (a *Attendance) Open() bool {
	return a.CheckOut.IsZero()
}
