package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/models"
)

func TestCreateAdmission_AssignsIDsAndNormalizesPhone(t *testing.T) {
	m := NewMemoryStore()

	student := &models.Student{DisplayName: "John Smith", Grade: 3, Semester: 1}
	contact := &models.StudentContactInfo{Email: "john@example.com", Mobile: "whatsapp:+1 555 123 4567"}
	require.NoError(t, m.CreateAdmission(student, contact))

	assert.NotZero(t, student.ID)
	assert.Equal(t, student.ID, contact.StudentID)
	assert.Equal(t, "+15551234567", contact.Mobile)
	assert.False(t, student.RegDate.IsZero())

	found, err := m.GetContactByMobile("whatsapp:+15551234567")
	require.NoError(t, err)
	assert.Equal(t, contact.ID, found.ID)
}

func TestFindUnenrolledByMobile(t *testing.T) {
	m := NewMemoryStore()

	enrolled := &models.Student{DisplayName: "Enrolled Kid", Enrolled: true}
	require.NoError(t, m.CreateAdmission(enrolled, &models.StudentContactInfo{Mobile: "+15550000001"}))

	pending := &models.Student{DisplayName: "Pending Kid"}
	require.NoError(t, m.CreateAdmission(pending, &models.StudentContactInfo{Mobile: "+15550000002"}))

	_, _, err := m.FindUnenrolledByMobile("+15550000001")
	assert.ErrorIs(t, err, ErrNotFound)

	student, contact, err := m.FindUnenrolledByMobile("+15550000002")
	require.NoError(t, err)
	assert.Equal(t, "Pending Kid", student.DisplayName)
	assert.Equal(t, pending.ID, contact.StudentID)

	_, _, err = m.FindUnenrolledByMobile("+15559999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAdmission_UnknownStudent(t *testing.T) {
	m := NewMemoryStore()

	ghost := &models.Student{DisplayName: "Ghost"}
	ghost.ID = 42
	err := m.UpdateAdmission(ghost, &models.StudentContactInfo{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateAppointment_ConcurrentSameSlot(t *testing.T) {
	m := NewMemoryStore()
	at := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.CreateAppointment(&models.Appointment{
				StudentID:   uint(i + 1),
				ScheduledAt: at,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSlotTaken)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent booking must win")
}

func TestCreateAppointment_ToleranceWindow(t *testing.T) {
	m := NewMemoryStore()
	at := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	require.NoError(t, m.CreateAppointment(&models.Appointment{StudentID: 1, ScheduledAt: at}))

	// Within the tolerance window counts as the same slot
	err := m.CreateAppointment(&models.Appointment{StudentID: 2, ScheduledAt: at.Add(30 * time.Second)})
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Beyond the window it is a different slot
	err = m.CreateAppointment(&models.Appointment{StudentID: 2, ScheduledAt: at.Add(2 * time.Minute)})
	assert.NoError(t, err)
}

func TestGetNextAppointment_SkipsPast(t *testing.T) {
	m := NewMemoryStore()
	now := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

	require.NoError(t, m.CreateAppointment(&models.Appointment{StudentID: 1, ScheduledAt: now.Add(-24 * time.Hour)}))
	require.NoError(t, m.CreateAppointment(&models.Appointment{StudentID: 1, ScheduledAt: now.Add(48 * time.Hour)}))
	require.NoError(t, m.CreateAppointment(&models.Appointment{StudentID: 2, ScheduledAt: now.Add(12 * time.Hour)}))

	next, err := m.GetNextAppointment(1, now)
	require.NoError(t, err)
	assert.True(t, next.ScheduledAt.Equal(now.Add(48*time.Hour)))

	_, err = m.GetNextAppointment(3, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBookedTimesBetween_Bounds(t *testing.T) {
	m := NewMemoryStore()
	from := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 3)

	inside := from.Add(9 * time.Hour)
	require.NoError(t, m.CreateAppointment(&models.Appointment{StudentID: 1, ScheduledAt: inside}))
	require.NoError(t, m.CreateAppointment(&models.Appointment{StudentID: 2, ScheduledAt: from.Add(-time.Hour)}))
	require.NoError(t, m.CreateAppointment(&models.Appointment{StudentID: 3, ScheduledAt: to}))

	times, err := m.GetBookedTimesBetween(from, to)
	require.NoError(t, err)
	require.Len(t, times, 1)
	assert.True(t, times[0].Equal(inside))
}

func TestSaveUserMessage(t *testing.T) {
	m := NewMemoryStore()

	err := m.SaveUserMessage(&models.UserMessage{
		Phone:      "+15551234567",
		Body:       "hello",
		ReceivedAt: time.Now(),
	})
	assert.NoError(t, err)
}
