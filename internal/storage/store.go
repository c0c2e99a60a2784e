package storage

import (
	"errors"
	"time"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/models"
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Sentinel errors shared by both store implementations
var (
	// ErrNotFound means the record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrSlotTaken means another appointment already holds the timestamp
	ErrSlotTaken = errors.New("appointment slot already taken")
)

// Store defines the interface for the persistence gateway
type Store interface {
	// Student / admission operations
	CreateAdmission(student *models.Student, contact *models.StudentContactInfo) error
	UpdateAdmission(student *models.Student, contact *models.StudentContactInfo) error
	GetStudent(id uint) (*models.Student, error)
	GetContactByStudent(studentID uint) (*models.StudentContactInfo, error)
	GetContactByMobile(phone string) (*models.StudentContactInfo, error)
	FindUnenrolledByMobile(phone string) (*models.Student, *models.StudentContactInfo, error)

	// Guardian operations (role lookup for greetings)
	GetGuardianByMobile(phone string) (*models.Guardian, error)

	// Appointment operations
	CreateAppointment(appt *models.Appointment) error
	GetNextAppointment(studentID uint, after time.Time) (*models.Appointment, error)
	GetFutureAppointments(studentID uint, after time.Time) ([]*models.Appointment, error)
	GetBookedTimesBetween(from, to time.Time) ([]time.Time, error)
	GetAppointmentsBetween(from, to time.Time) ([]*models.Appointment, error)

	// Message log operations
	SaveUserMessage(msg *models.UserMessage) error
}
