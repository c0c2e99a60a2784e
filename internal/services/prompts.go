package services

import (
	"fmt"
	"strings"
	"time"
)

// Canned replies used across the flow
const (
	msgGenericRetry  = "Sorry, something went wrong on our side. Please try again in a moment."
	msgCancelled     = "Your admission process has been cancelled. Message us again anytime to restart."
	msgCompleted     = "Your admission process is complete. Let us know if you need anything else."
	msgGreeting      = "Hello! You can ask about admissions or any general question about the school."
	msgPersistFailed = "There was a problem saving your data. Please try again later."
	msgRephrase      = "Could you please rephrase your question?"
	msgFarewell      = "No worries! Let us know if you need anything else."
	msgNoSlots       = "No available slots in the next three days (Sun–Thu, 8:00–15:00)."
	msgBookingFailed = "Sorry, we could not book your meeting right now. Please message us again later."
)

// PromptForState returns the outbound prompt for a flow state
func PromptForState(state State, data *SessionData) string {
	switch state {
	case StateAdmissionDisplayName:
		return "Please provide your full name."
	case StateAdmissionEmail:
		return "What is your email address?"
	case StateAdmissionGrade:
		return "For which grade are you applying? (e.g., Grade 3)"
	case StateAdmissionSemester:
		return "Which semester are you applying for? (1 or 2)"
	case StateAdmissionReferral:
		return "How did you hear about us? (Twitter, Facebook, Instagram, YouTube, Friend, Other)"
	case StateAdmissionConfirm:
		return fmt.Sprintf("Please review your details:\n%s\n\nAre all details correct now? (Yes/No)", reviewBlock(data))
	case StateChooseDetailToChange:
		return "Which detail would you like to change? (Name, Email, Grade, Semester, Referral)"
	case StateUpdateDetail:
		return fmt.Sprintf("Please provide the new value for %s.", titleCase(data.DetailToUpdate))
	case StateMeetingOffer:
		return "Your admission is submitted. Would you like to schedule a meeting now? (Yes/No)"
	case StateMeetingShowSlots:
		return fmt.Sprintf("Available slots (8:00 AM–3:00 PM, every 30 min, Sun–Thu):\n%s\nPlease choose a slot number:", data.SlotsList)
	case StateConfirmExistingData:
		return fmt.Sprintf("We found your admission details on file:\n%s\n\nAre these details correct? (Yes/No)", reviewBlock(data))
	case StateConfirmBookAnother:
		return fmt.Sprintf("You already have an appointment on %s. Would you like to book another one? (Yes/No)",
			formatAppointmentTime(data.ExistingAppointmentDate))
	case StateConfirmReplaceAppointment:
		return fmt.Sprintf("You already have an appointment on %s. Would you like to book the new slot on %s as well? (Yes/No)",
			formatAppointmentTime(data.ExistingAppointmentDate),
			formatAppointmentTime(data.PendingSlot))
	case StateAwaitingContinue:
		return "How can I assist you further?"
	default:
		return ""
	}
}

func reviewBlock(data *SessionData) string {
	return fmt.Sprintf("- Name: %s\n- Email: %s\n- Grade: Grade %d\n- Semester: Semester %d\n- Referral: %s",
		valueOr(data.DisplayName, "Not provided"),
		valueOr(data.Email, "Not provided"),
		data.Grade,
		data.Semester,
		valueOr(data.Referral, "Not provided"))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatAppointmentTime(t *time.Time) string {
	if t == nil {
		return "an unknown date"
	}
	return fmt.Sprintf("%s at %s", t.Format("January 2"), t.Format("3:04 PM"))
}
