package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/services"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/storage"
)

// ReminderJob sends WhatsApp reminders for upcoming admission meetings
type ReminderJob struct {
	store   storage.Store
	channel services.MessageChannel

	stop chan struct{}
	// appointment IDs already reminded, so hourly runs don't repeat
	reminded map[uint]bool
}

// NewReminderJob creates a new reminder job scheduler
func NewReminderJob(store storage.Store, channel services.MessageChannel) *ReminderJob {
	return &ReminderJob{
		store:    store,
		channel:  channel,
		stop:     make(chan struct{}),
		reminded: make(map[uint]bool),
	}
}

// Start begins the hourly reminder loop
func (r *ReminderJob) Start() {
	log.Println("Starting appointment reminder job...")
	go r.run()
}

// Stop halts the reminder loop
func (r *ReminderJob) Stop() {
	close(r.stop)
	log.Println("Stopping appointment reminder job...")
}

func (r *ReminderJob) run() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sendReminders()
		case <-r.stop:
			return
		}
	}
}

// sendReminders notifies families whose meeting is within the next 24 hours
func (r *ReminderJob) sendReminders() {
	now := time.Now()
	appts, err := r.store.GetAppointmentsBetween(now, now.Add(24*time.Hour))
	if err != nil {
		log.Printf("Error loading appointments for reminders: %v", err)
		return
	}

	sentCount := 0
	for _, appt := range appts {
		if r.reminded[appt.ID] {
			continue
		}

		contact, err := r.store.GetContactByStudent(appt.StudentID)
		if err != nil {
			log.Printf("No contact for student %d, skipping reminder: %v", appt.StudentID, err)
			continue
		}

		msg := fmt.Sprintf("Reminder: your admission meeting is scheduled for %s at %s. Reference: %s. We look forward to seeing you!",
			appt.ScheduledAt.Format("January 2"), appt.ScheduledAt.Format("3:04 PM"), appt.Reference)
		if err := r.channel.Send(contact.Mobile, msg); err != nil {
			log.Printf("Failed to send reminder to %s: %v", contact.Mobile, err)
			continue
		}

		r.reminded[appt.ID] = true
		sentCount++
	}

	if sentCount > 0 {
		log.Printf("Sent %d appointment reminders", sentCount)
	}
}
