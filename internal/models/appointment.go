package models

import (
	"time"

	"gorm.io/gorm"
)

// Appointment represents a booked admission meeting slot.
// ScheduledAt carries a unique index: two bookings can never share the same
// exact timestamp, and a constraint violation is the conflict signal.
type Appointment struct {
	gorm.Model

	StudentID   uint      `json:"student_id" gorm:"index"`
	ScheduledAt time.Time `json:"scheduled_at" gorm:"uniqueIndex"`
	Purpose     string    `json:"purpose"` // e.g. "Admission Inquiry"
	Host        string    `json:"host"`    // who meets the family
	Type        string    `json:"type"`    // "onsite" for now
	ForGrade    int       `json:"for_grade"`
	Reference   string    `json:"reference"` // short code shown in the confirmation
}

// Appointment defaults
const (
	AppointmentPurposeAdmission = "Admission Inquiry"
	AppointmentTypeOnsite       = "onsite"
	AppointmentDefaultHost      = "Admissions Office"
)
