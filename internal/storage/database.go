package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/models"
)

// DatabaseStore implements Store using PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Student / admission operations

// CreateAdmission inserts the student and contact records in one transaction.
// IDs come from the database sequence.
func (d *DatabaseStore) CreateAdmission(student *models.Student, contact *models.StudentContactInfo) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(student).Error; err != nil {
			return err
		}
		contact.StudentID = student.ID
		return tx.Create(contact).Error
	})
}

func (d *DatabaseStore) UpdateAdmission(student *models.Student, contact *models.StudentContactInfo) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(student).Error; err != nil {
			return err
		}
		return tx.Save(contact).Error
	})
}

func (d *DatabaseStore) GetStudent(id uint) (*models.Student, error) {
	var student models.Student
	if err := d.db.First(&student, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &student, nil
}

func (d *DatabaseStore) GetContactByStudent(studentID uint) (*models.StudentContactInfo, error) {
	var contact models.StudentContactInfo
	err := d.db.Where("student_id = ?", studentID).First(&contact).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &contact, nil
}

func (d *DatabaseStore) GetContactByMobile(phone string) (*models.StudentContactInfo, error) {
	phone = models.NormalizePhone(phone)

	var contact models.StudentContactInfo
	err := d.db.Where("mobile = ? OR mobile2 = ?", phone, phone).First(&contact).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &contact, nil
}

func (d *DatabaseStore) FindUnenrolledByMobile(phone string) (*models.Student, *models.StudentContactInfo, error) {
	contact, err := d.GetContactByMobile(phone)
	if err != nil {
		return nil, nil, err
	}

	var student models.Student
	err = d.db.Where("id = ? AND enrolled = ?", contact.StudentID, false).First(&student).Error
	if err != nil {
		return nil, nil, translateNotFound(err)
	}
	return &student, contact, nil
}

// Guardian operations

func (d *DatabaseStore) GetGuardianByMobile(phone string) (*models.Guardian, error) {
	phone = models.NormalizePhone(phone)

	var guardian models.Guardian
	if err := d.db.Where("mobile = ?", phone).First(&guardian).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &guardian, nil
}

// Appointment operations

// CreateAppointment books a slot atomically. The transaction re-checks a
// small tolerance window around the timestamp, and the unique index on
// scheduled_at turns any remaining race into a constraint violation, which
// is reported as ErrSlotTaken.
func (d *DatabaseStore) CreateAppointment(appt *models.Appointment) error {
	err := d.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Appointment{}).
			Where("scheduled_at BETWEEN ? AND ?",
				appt.ScheduledAt.Add(-bookingTolerance),
				appt.ScheduledAt.Add(bookingTolerance)).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSlotTaken
		}
		return tx.Create(appt).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlotTaken
	}
	return err
}

func (d *DatabaseStore) GetNextAppointment(studentID uint, after time.Time) (*models.Appointment, error) {
	var appt models.Appointment
	err := d.db.Where("student_id = ? AND scheduled_at > ?", studentID, after).
		Order("scheduled_at ASC").
		First(&appt).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &appt, nil
}

func (d *DatabaseStore) GetFutureAppointments(studentID uint, after time.Time) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := d.db.Where("student_id = ? AND scheduled_at > ?", studentID, after).
		Order("scheduled_at ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (d *DatabaseStore) GetBookedTimesBetween(from, to time.Time) ([]time.Time, error) {
	var times []time.Time
	err := d.db.Model(&models.Appointment{}).
		Where("scheduled_at >= ? AND scheduled_at < ?", from, to).
		Order("scheduled_at ASC").
		Pluck("scheduled_at", &times).Error
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (d *DatabaseStore) GetAppointmentsBetween(from, to time.Time) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := d.db.Where("scheduled_at >= ? AND scheduled_at < ?", from, to).
		Order("scheduled_at ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

// Message log operations

func (d *DatabaseStore) SaveUserMessage(msg *models.UserMessage) error {
	return d.db.Create(msg).Error
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// compile-time interface check
var _ Store = (*DatabaseStore)(nil)
