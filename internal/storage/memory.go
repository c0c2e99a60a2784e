package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/models"
)

// bookingTolerance guards against sub-second skew between slot generation
// and booking. The database store enforces the same window inside its
// transaction on top of the unique index.
const bookingTolerance = time.Minute

// MemoryStore holds all data in memory, for tests and USE_MEMORY_STORE mode
type MemoryStore struct {
	students     map[uint]*models.Student
	contacts     map[uint]*models.StudentContactInfo // keyed by contact ID
	guardians    map[uint]*models.Guardian
	appointments map[uint]*models.Appointment
	messages     []*models.UserMessage

	// Mutexes for thread safety
	studentMu     sync.RWMutex
	guardianMu    sync.RWMutex
	appointmentMu sync.RWMutex
	messageMu     sync.Mutex

	// Counters for ID generation
	studentCounter     uint
	contactCounter     uint
	guardianCounter    uint
	appointmentCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students:     make(map[uint]*models.Student),
		contacts:     make(map[uint]*models.StudentContactInfo),
		guardians:    make(map[uint]*models.Guardian),
		appointments: make(map[uint]*models.Appointment),
	}
}

// Student / admission operations

func (m *MemoryStore) CreateAdmission(student *models.Student, contact *models.StudentContactInfo) error {
	m.studentMu.Lock()
	defer m.studentMu.Unlock()

	m.studentCounter++
	student.ID = m.studentCounter
	if student.RegDate.IsZero() {
		student.RegDate = time.Now()
	}
	student.CreatedAt = time.Now()
	student.UpdatedAt = time.Now()
	m.students[student.ID] = student

	m.contactCounter++
	contact.ID = m.contactCounter
	contact.StudentID = student.ID
	contact.Mobile = models.NormalizePhone(contact.Mobile)
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()
	m.contacts[contact.ID] = contact

	return nil
}

func (m *MemoryStore) UpdateAdmission(student *models.Student, contact *models.StudentContactInfo) error {
	m.studentMu.Lock()
	defer m.studentMu.Unlock()

	if _, exists := m.students[student.ID]; !exists {
		return ErrNotFound
	}
	student.UpdatedAt = time.Now()
	m.students[student.ID] = student

	for id, c := range m.contacts {
		if c.StudentID == student.ID {
			contact.ID = id
			contact.StudentID = student.ID
			contact.UpdatedAt = time.Now()
			m.contacts[id] = contact
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) GetStudent(id uint) (*models.Student, error) {
	m.studentMu.RLock()
	defer m.studentMu.RUnlock()

	student, exists := m.students[id]
	if !exists {
		return nil, ErrNotFound
	}
	return student, nil
}

func (m *MemoryStore) GetContactByStudent(studentID uint) (*models.StudentContactInfo, error) {
	m.studentMu.RLock()
	defer m.studentMu.RUnlock()

	for _, c := range m.contacts {
		if c.StudentID == studentID {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetContactByMobile(phone string) (*models.StudentContactInfo, error) {
	phone = models.NormalizePhone(phone)

	m.studentMu.RLock()
	defer m.studentMu.RUnlock()

	for _, c := range m.contacts {
		if c.Mobile == phone || (c.Mobile2 != "" && c.Mobile2 == phone) {
			return c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindUnenrolledByMobile(phone string) (*models.Student, *models.StudentContactInfo, error) {
	phone = models.NormalizePhone(phone)

	m.studentMu.RLock()
	defer m.studentMu.RUnlock()

	for _, c := range m.contacts {
		if c.Mobile != phone && (c.Mobile2 == "" || c.Mobile2 != phone) {
			continue
		}
		student, exists := m.students[c.StudentID]
		if exists && !student.Enrolled {
			return student, c, nil
		}
	}
	return nil, nil, ErrNotFound
}

// Guardian operations

func (m *MemoryStore) GetGuardianByMobile(phone string) (*models.Guardian, error) {
	phone = models.NormalizePhone(phone)

	m.guardianMu.RLock()
	defer m.guardianMu.RUnlock()

	for _, g := range m.guardians {
		if g.Mobile == phone {
			return g, nil
		}
	}
	return nil, ErrNotFound
}

// AddGuardian seeds a guardian record (tests and memory-store mode)
func (m *MemoryStore) AddGuardian(g *models.Guardian) *models.Guardian {
	m.guardianMu.Lock()
	defer m.guardianMu.Unlock()

	m.guardianCounter++
	g.ID = m.guardianCounter
	g.Mobile = models.NormalizePhone(g.Mobile)
	m.guardians[g.ID] = g
	return g
}

// Appointment operations

// CreateAppointment inserts a new appointment. The existence check and the
// insert happen under one lock, so two concurrent attempts for the same
// timestamp cannot both succeed.
func (m *MemoryStore) CreateAppointment(appt *models.Appointment) error {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	for _, existing := range m.appointments {
		diff := existing.ScheduledAt.Sub(appt.ScheduledAt)
		if diff < 0 {
			diff = -diff
		}
		if diff <= bookingTolerance {
			return ErrSlotTaken
		}
	}

	m.appointmentCounter++
	appt.ID = m.appointmentCounter
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = time.Now()
	m.appointments[appt.ID] = appt
	return nil
}

func (m *MemoryStore) GetNextAppointment(studentID uint, after time.Time) (*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var next *models.Appointment
	for _, a := range m.appointments {
		if a.StudentID != studentID || !a.ScheduledAt.After(after) {
			continue
		}
		if next == nil || a.ScheduledAt.Before(next.ScheduledAt) {
			next = a
		}
	}
	if next == nil {
		return nil, ErrNotFound
	}
	return next, nil
}

func (m *MemoryStore) GetFutureAppointments(studentID uint, after time.Time) ([]*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var appts []*models.Appointment
	for _, a := range m.appointments {
		if a.StudentID == studentID && a.ScheduledAt.After(after) {
			appts = append(appts, a)
		}
	}
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].ScheduledAt.Before(appts[j].ScheduledAt)
	})
	return appts, nil
}

func (m *MemoryStore) GetBookedTimesBetween(from, to time.Time) ([]time.Time, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var times []time.Time
	for _, a := range m.appointments {
		if !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			times = append(times, a.ScheduledAt)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, nil
}

func (m *MemoryStore) GetAppointmentsBetween(from, to time.Time) ([]*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var appts []*models.Appointment
	for _, a := range m.appointments {
		if !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			appts = append(appts, a)
		}
	}
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].ScheduledAt.Before(appts[j].ScheduledAt)
	})
	return appts, nil
}

// Message log operations

func (m *MemoryStore) SaveUserMessage(msg *models.UserMessage) error {
	m.messageMu.Lock()
	defer m.messageMu.Unlock()

	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, msg)
	return nil
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
