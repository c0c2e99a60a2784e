package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/models"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/storage"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/utils"
)

// Slot window: the next 3 calendar days starting tomorrow, school days only
// (Sunday through Thursday), half-hour marks from 08:00 up to and excluding
// 15:00.
const (
	slotWindowDays   = 3
	slotStartHour    = 8
	slotEndHour      = 15
	slotIntervalMins = 30
)

// SlotAllocator computes bookable meeting slots and performs race-free
// booking through the store.
type SlotAllocator struct {
	store storage.Store
	now   func() time.Time
}

// NewSlotAllocator creates a new slot allocator
func NewSlotAllocator(store storage.Store) *SlotAllocator {
	return &SlotAllocator{
		store: store,
		now:   time.Now,
	}
}

// AvailableSlots returns the open slots in chronological order. The result
// is computed fresh on every call — no caching — so the list is as close to
// the booking state as possible. Grade only informs the section label, it
// never filters slots.
func (a *SlotAllocator) AvailableSlots(grade int) ([]time.Time, error) {
	now := a.now()
	windowStart := startOfDay(now).AddDate(0, 0, 1)
	windowEnd := windowStart.AddDate(0, 0, slotWindowDays)

	booked, err := a.store.GetBookedTimesBetween(windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked slots: %w", err)
	}
	taken := make(map[int64]bool, len(booked))
	for _, t := range booked {
		taken[t.Unix()] = true
	}

	var slots []time.Time
	for day := windowStart; day.Before(windowEnd); day = day.AddDate(0, 0, 1) {
		if !isSchoolDay(day.Weekday()) {
			continue
		}
		for hour := slotStartHour; hour < slotEndHour; hour++ {
			for min := 0; min < 60; min += slotIntervalMins {
				candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
				if !candidate.After(now) {
					continue
				}
				if taken[candidate.Unix()] {
					continue
				}
				slots = append(slots, candidate)
			}
		}
	}
	return slots, nil
}

// Book atomically reserves the slot for the student. A concurrent booking of
// the same timestamp surfaces as storage.ErrSlotTaken; all other failures
// are reported as-is.
func (a *SlotAllocator) Book(studentID uint, at time.Time, grade int) (*models.Appointment, error) {
	appt := &models.Appointment{
		StudentID:   studentID,
		ScheduledAt: at,
		Purpose:     models.AppointmentPurposeAdmission,
		Host:        models.AppointmentDefaultHost,
		Type:        models.AppointmentTypeOnsite,
		ForGrade:    grade,
		Reference:   utils.GenerateReferenceCode("APT"),
	}

	if err := a.store.CreateAppointment(appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// NextAppointment returns the student's nearest future appointment, or
// storage.ErrNotFound when there is none. Used both to block a second
// booking and to populate the replace-or-keep prompt.
func (a *SlotAllocator) NextAppointment(studentID uint) (*models.Appointment, error) {
	return a.store.GetNextAppointment(studentID, a.now())
}

func isSchoolDay(wd time.Weekday) bool {
	return wd != time.Friday && wd != time.Saturday
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SectionForGrade maps a grade to the school section label shown on
// appointment metadata. Display only, it never filters availability.
func SectionForGrade(grade int) string {
	switch {
	case grade <= 0:
		return "General"
	case grade <= 5:
		return "Lower School"
	case grade <= 8:
		return "Middle School"
	default:
		return "Upper School"
	}
}

// RenderSlotList formats slots as a numbered list for the chat prompt,
// e.g. "1. January 5, 9:30 AM".
func RenderSlotList(slots []time.Time) string {
	var b strings.Builder
	for i, s := range slots {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%d. %s, %s", i+1, s.Format("January 2"), s.Format("3:04 PM")))
	}
	return b.String()
}
