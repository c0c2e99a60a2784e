package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/models"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/storage"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/utils"
)

// State identifies a step of the admission conversation
type State string

const (
	StateAdmissionDisplayName      State = "admission_displayname"
	StateAdmissionEmail            State = "admission_email"
	StateAdmissionGrade            State = "admission_grade"
	StateAdmissionSemester         State = "admission_semester"
	StateAdmissionReferral         State = "admission_referral"
	StateAdmissionConfirm          State = "admission_confirm"
	StateChooseDetailToChange      State = "admission_choose_detail_to_change"
	StateUpdateDetail              State = "update_detail"
	StateMeetingOffer              State = "meeting_offer"
	StateMeetingShowSlots          State = "meeting_show_slots"
	StateConfirmReplaceAppointment State = "confirm_replace_appointment"
	StateCheckExistingAppointment  State = "check_existing_appointment"
	StateConfirmExistingData       State = "confirm_existing_data"
	StateConfirmBookAnother        State = "confirm_book_another_appointment"
	StateAwaitingContinue          State = "awaiting_continue"
)

// cancelKeyword ends the flow from any state, case-insensitive
const cancelKeyword = "cancel"

// fieldKindByState maps each collection state to the validation it runs
var fieldKindByState = map[State]FieldKind{
	StateAdmissionDisplayName: FieldName,
	StateAdmissionEmail:       FieldEmail,
	StateAdmissionGrade:       FieldGrade,
	StateAdmissionSemester:    FieldSemester,
	StateAdmissionReferral:    FieldReferral,
}

// nextFieldState is the fixed field collection order
var nextFieldState = map[FieldKind]State{
	FieldName:     StateAdmissionEmail,
	FieldEmail:    StateAdmissionGrade,
	FieldGrade:    StateAdmissionSemester,
	FieldSemester: StateAdmissionReferral,
	FieldReferral: StateAdmissionConfirm,
}

// fieldKindByDetail maps the closed set of correction choices to field kinds
var fieldKindByDetail = map[string]FieldKind{
	"name":     FieldName,
	"email":    FieldEmail,
	"grade":    FieldGrade,
	"semester": FieldSemester,
	"referral": FieldReferral,
}

// Flow orchestrates the admission conversation: it owns all state
// transitions, calling the oracle, the slot allocator and the store, and
// sending prompts through the message channel.
type Flow struct {
	store     storage.Store
	sessions  *SessionStore
	oracle    Oracle
	channel   MessageChannel
	allocator *SlotAllocator
	knowledge string

	startedAt time.Time
	now       func() time.Time
}

// NewFlow creates the flow state machine
func NewFlow(store storage.Store, sessions *SessionStore, oracle Oracle, channel MessageChannel, allocator *SlotAllocator, knowledge string) *Flow {
	return &Flow{
		store:     store,
		sessions:  sessions,
		oracle:    oracle,
		channel:   channel,
		allocator: allocator,
		knowledge: knowledge,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// HandleMessage processes one inbound message. All handling for a given user
// is serialized through the session store's per-user lock, so transitions are
// observed in message order; different users run in parallel.
func (f *Flow) HandleMessage(userID, body string, receivedAt time.Time) error {
	// Ignore backlog delivered from before the process started
	if receivedAt.Before(f.startedAt) {
		log.Printf("Ignoring message from before the bot started (user %s)", userID)
		return nil
	}

	phone := models.NormalizePhone(userID)
	text := utils.SanitizeInput(body)
	if text == "" {
		return nil
	}

	if err := f.store.SaveUserMessage(&models.UserMessage{Phone: phone, Body: text, ReceivedAt: receivedAt}); err != nil {
		log.Printf("Failed to log message from %s: %v", phone, err)
	}

	unlock := f.sessions.LockUser(phone)
	defer unlock()

	// Cancellation keyword overrides any state-specific handling
	if strings.EqualFold(text, cancelKeyword) {
		f.sessions.Delete(phone)
		return f.send(phone, msgCancelled)
	}

	sess := f.sessions.Get(phone)
	if sess == nil {
		return f.handleNoSession(phone, text)
	}

	// A completed flow only acknowledges, no further side effects
	if sess.IntentDisabled {
		return f.send(phone, msgCompleted)
	}

	// FAQ interrupt: from any state except the hub itself, an FAQ-classified
	// message parks the current state and detours through awaiting_continue.
	if sess.State != StateAwaitingContinue {
		intent, err := f.oracle.ClassifyIntent(text, string(sess.State))
		if err != nil {
			log.Printf("Intent classification failed for %s: %v", phone, err)
		} else if intent == IntentAskFAQ {
			return f.handleFAQInterrupt(sess, text)
		}
	}

	switch sess.State {
	case StateAdmissionDisplayName, StateAdmissionEmail, StateAdmissionGrade,
		StateAdmissionSemester, StateAdmissionReferral:
		return f.handleFieldCollection(sess, text)
	case StateAdmissionConfirm:
		return f.handleConfirm(sess, text)
	case StateChooseDetailToChange:
		return f.handleChooseDetail(sess, text)
	case StateUpdateDetail:
		return f.handleUpdateDetail(sess, text)
	case StateMeetingOffer:
		return f.handleMeetingOffer(sess, text)
	case StateMeetingShowSlots:
		return f.handleShowSlots(sess, text)
	case StateConfirmReplaceAppointment:
		return f.handleConfirmReplace(sess, text)
	case StateCheckExistingAppointment:
		// A previous resumption attempt failed mid-lookup; run it again
		return f.evaluateResumption(sess)
	case StateConfirmExistingData:
		return f.handleConfirmExistingData(sess, text)
	case StateConfirmBookAnother:
		return f.handleConfirmBookAnother(sess, text)
	case StateAwaitingContinue:
		return f.handleAwaitingContinue(sess, text)
	default:
		log.Printf("Session %s in unknown state %q, resetting", sess.SessionID, sess.State)
		f.sessions.Delete(sess.UserID)
		return f.send(sess.UserID, msgGenericRetry)
	}
}

// handleNoSession decides how a fresh conversation starts
func (f *Flow) handleNoSession(phone, text string) error {
	intent, err := f.oracle.ClassifyIntent(text, "")
	if err != nil {
		log.Printf("Intent classification failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}

	switch intent {
	case IntentAdmissionFlow:
		sess := NewSession(phone, StateCheckExistingAppointment)
		return f.evaluateResumption(sess)

	case IntentAskFAQ:
		sess := NewSession(phone, StateAwaitingContinue)
		f.sessions.Put(sess)
		if err := f.sendAnswer(phone, text); err != nil {
			return err
		}
		return f.send(phone, PromptForState(StateAwaitingContinue, &sess.Data))

	default:
		return f.greetKnownUser(phone)
	}
}

// handleFAQInterrupt parks the current state, answers the question and shows
// the hub prompt. The parked state is restored (or retired, for a completed
// confirmation) by the hub on the next message.
func (f *Flow) handleFAQInterrupt(sess *Session, text string) error {
	sess.PreviousState = sess.State
	sess.State = StateAwaitingContinue
	f.sessions.Put(sess)

	if err := f.sendAnswer(sess.UserID, text); err != nil {
		return err
	}
	return f.send(sess.UserID, PromptForState(StateAwaitingContinue, &sess.Data))
}

// evaluateResumption looks up what the school already knows about the caller
// and picks the entry state: existing appointment, un-enrolled admission
// record, or a fresh form. On a lookup failure the session stays parked in
// check_existing_appointment so the next message retries.
func (f *Flow) evaluateResumption(sess *Session) error {
	phone := sess.UserID

	contact, err := f.store.GetContactByMobile(phone)
	if errors.Is(err, storage.ErrNotFound) {
		return f.startFresh(sess)
	}
	if err != nil {
		return f.parkResumption(sess, err)
	}

	appts, err := f.store.GetFutureAppointments(contact.StudentID, f.now())
	if err != nil {
		return f.parkResumption(sess, err)
	}
	if len(appts) > 0 {
		next := appts[0].ScheduledAt
		sess.Data = SessionData{ExistingAppointmentDate: &next}
		sess.State = StateConfirmBookAnother
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateConfirmBookAnother, &sess.Data))
	}

	return f.resumeAdmissionData(sess)
}

func (f *Flow) parkResumption(sess *Session, err error) error {
	log.Printf("Resumption lookup failed for %s: %v", sess.UserID, err)
	sess.State = StateCheckExistingAppointment
	f.sessions.Put(sess)
	return f.send(sess.UserID, msgGenericRetry)
}

// resumeAdmissionData loads an un-enrolled admission record into the session
// for review, or starts a fresh form when there is none
func (f *Flow) resumeAdmissionData(sess *Session) error {
	student, contact, err := f.store.FindUnenrolledByMobile(sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return f.startFresh(sess)
	}
	if err != nil {
		return f.parkResumption(sess, err)
	}

	id := student.ID
	sess.Data = SessionData{
		DisplayName: student.DisplayName,
		Email:       contact.Email,
		Grade:       student.Grade,
		Semester:    student.Semester,
		Referral:    valueOr(student.Referral, "Unknown"),
		StudentID:   &id,
	}
	sess.State = StateConfirmExistingData
	f.sessions.Put(sess)
	return f.send(sess.UserID, PromptForState(StateConfirmExistingData, &sess.Data))
}

func (f *Flow) startFresh(sess *Session) error {
	sess.Data = SessionData{}
	sess.State = StateAdmissionDisplayName
	f.sessions.Put(sess)
	return f.send(sess.UserID, PromptForState(StateAdmissionDisplayName, &sess.Data))
}

// handleFieldCollection validates the answer for the current field and
// advances along the fixed field order. Rejections echo the oracle's message
// and keep the state.
func (f *Flow) handleFieldCollection(sess *Session, text string) error {
	phone := sess.UserID
	kind := fieldKindByState[sess.State]

	res, err := f.oracle.ValidateField(kind, text)
	if err != nil {
		log.Printf("Field validation failed for %s (%s): %v", phone, kind, err)
		return f.send(phone, msgGenericRetry)
	}

	if !res.Accepted {
		if err := f.send(phone, res.Message); err != nil {
			return err
		}
		return f.send(phone, PromptForState(sess.State, &sess.Data))
	}

	if msg := storeField(&sess.Data, kind, res.NormalizedValue); msg != "" {
		if serr := f.send(phone, msg); serr != nil {
			return serr
		}
		return f.send(phone, PromptForState(sess.State, &sess.Data))
	}

	sess.State = nextFieldState[kind]
	f.sessions.Put(sess)
	return f.send(phone, PromptForState(sess.State, &sess.Data))
}

// storeField writes an accepted value under the field's canonical key.
// Grade and semester keep the first digit run of the normalized value.
// Returns a rejection message when the value cannot be stored.
func storeField(data *SessionData, kind FieldKind, value string) string {
	value = strings.TrimSpace(value)
	switch kind {
	case FieldName:
		data.DisplayName = value
	case FieldEmail:
		data.Email = value
	case FieldGrade:
		n, ok := firstNumber(value)
		if !ok {
			return "Invalid grade. Please try again."
		}
		data.Grade = n
	case FieldSemester:
		n, ok := firstNumber(value)
		if !ok {
			return "Invalid semester. Please try again."
		}
		data.Semester = n
	case FieldReferral:
		data.Referral = value
	}
	return ""
}

// fieldValue reads the stored value for a field, for confirmation echoes
func fieldValue(data *SessionData, kind FieldKind) string {
	switch kind {
	case FieldName:
		return data.DisplayName
	case FieldEmail:
		return data.Email
	case FieldGrade:
		return fmt.Sprintf("Grade %d", data.Grade)
	case FieldSemester:
		return fmt.Sprintf("Semester %d", data.Semester)
	case FieldReferral:
		return data.Referral
	}
	return ""
}

// firstNumber extracts the first digit run from a string
func firstNumber(s string) (int, bool) {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(s[start:i])
			return n, err == nil
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(s[start:])
		return n, err == nil
	}
	return 0, false
}

// handleConfirm runs the review answer: yes persists, no opens the
// correction loop, anything else re-prompts
func (f *Flow) handleConfirm(sess *Session, text string) error {
	phone := sess.UserID

	// Reaching confirm with nothing collected and no linked record means the
	// session is corrupt; fail closed instead of persisting garbage.
	if sess.Data.StudentID == nil && sess.Data.DisplayName == "" && sess.Data.Email == "" {
		log.Printf("Session %s reached confirm with no data", sess.SessionID)
		f.sessions.Delete(phone)
		return f.send(phone, msgGenericRetry)
	}

	yn, err := f.oracle.InterpretYesNo(text)
	if err != nil {
		log.Printf("Yes/no interpretation failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}

	switch yn {
	case YesNoYes:
		return f.persistAdmission(sess)
	case YesNoNo:
		sess.State = StateChooseDetailToChange
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateChooseDetailToChange, &sess.Data))
	default:
		return f.send(phone, "I did not understand. Are all details correct? (Yes/No)")
	}
}

// persistAdmission writes the admission and contact records. Updates reuse
// the linked record; inserts allocate new identifiers and link the session.
// Any failure here deletes the session (fail-closed: resuming into a
// half-persisted state would be worse than restarting).
func (f *Flow) persistAdmission(sess *Session) error {
	phone := sess.UserID

	var err error
	if sess.Data.StudentID != nil {
		err = f.updateExistingAdmission(sess)
	} else {
		err = f.insertNewAdmission(sess)
	}
	if err != nil {
		log.Printf("Admission persistence failed for %s: %v", phone, err)
		f.sessions.Delete(phone)
		return f.send(phone, msgPersistFailed)
	}

	sess.State = StateMeetingOffer
	f.sessions.Put(sess)
	return f.send(phone, PromptForState(StateMeetingOffer, &sess.Data))
}

func (f *Flow) updateExistingAdmission(sess *Session) error {
	student, err := f.store.GetStudent(*sess.Data.StudentID)
	if err != nil {
		return err
	}
	contact, err := f.store.GetContactByStudent(student.ID)
	if err != nil {
		return err
	}

	student.DisplayName = sess.Data.DisplayName
	student.Grade = sess.Data.Grade
	student.Semester = sess.Data.Semester
	student.Referral = sess.Data.Referral
	contact.Email = sess.Data.Email

	return f.store.UpdateAdmission(student, contact)
}

func (f *Flow) insertNewAdmission(sess *Session) error {
	student := &models.Student{
		DisplayName: sess.Data.DisplayName,
		Grade:       sess.Data.Grade,
		Semester:    sess.Data.Semester,
		Referral:    sess.Data.Referral,
		RegDate:     f.now(),
	}
	contact := &models.StudentContactInfo{
		Email:  sess.Data.Email,
		Mobile: sess.UserID,
	}

	if err := f.store.CreateAdmission(student, contact); err != nil {
		return err
	}

	id := student.ID
	sess.Data.StudentID = &id
	return nil
}

// handleChooseDetail accepts one of the closed set of field names
func (f *Flow) handleChooseDetail(sess *Session, text string) error {
	phone := sess.UserID
	detail := strings.ToLower(strings.TrimSpace(text))

	if _, ok := fieldKindByDetail[detail]; !ok {
		return f.send(phone, "Please choose a valid detail: Name, Email, Grade, Semester, or Referral.")
	}

	sess.Data.DetailToUpdate = detail
	sess.State = StateUpdateDetail
	f.sessions.Put(sess)
	return f.send(phone, fmt.Sprintf("Please provide your new %s.", titleCase(detail)))
}

// handleUpdateDetail re-runs field validation for the chosen detail and
// returns to the review on acceptance
func (f *Flow) handleUpdateDetail(sess *Session, text string) error {
	phone := sess.UserID

	kind, ok := fieldKindByDetail[sess.Data.DetailToUpdate]
	if !ok {
		// Lost track of the chosen detail; show the review again
		sess.State = StateAdmissionConfirm
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateAdmissionConfirm, &sess.Data))
	}

	res, err := f.oracle.ValidateField(kind, text)
	if err != nil {
		log.Printf("Field validation failed for %s (%s): %v", phone, kind, err)
		return f.send(phone, msgGenericRetry)
	}

	if !res.Accepted {
		if err := f.send(phone, res.Message); err != nil {
			return err
		}
		return f.send(phone, PromptForState(StateUpdateDetail, &sess.Data))
	}

	if msg := storeField(&sess.Data, kind, res.NormalizedValue); msg != "" {
		if serr := f.send(phone, msg); serr != nil {
			return serr
		}
		return f.send(phone, PromptForState(StateUpdateDetail, &sess.Data))
	}

	detail := sess.Data.DetailToUpdate
	sess.Data.DetailToUpdate = ""
	sess.State = StateAdmissionConfirm
	f.sessions.Put(sess)

	if err := f.send(phone, fmt.Sprintf("Thank you! Your %s has been updated to %s.", detail, fieldValue(&sess.Data, kind))); err != nil {
		return err
	}
	return f.send(phone, PromptForState(StateAdmissionConfirm, &sess.Data))
}

// handleMeetingOffer asks whether to schedule the follow-up meeting
func (f *Flow) handleMeetingOffer(sess *Session, text string) error {
	phone := sess.UserID

	yn, err := f.oracle.InterpretYesNo(text)
	if err != nil {
		log.Printf("Yes/no interpretation failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}

	switch yn {
	case YesNoYes:
		slots, err := f.allocator.AvailableSlots(sess.Data.Grade)
		if err != nil {
			log.Printf("Slot generation failed for %s: %v", phone, err)
			return f.send(phone, msgGenericRetry)
		}
		if len(slots) == 0 {
			f.sessions.Delete(phone)
			return f.send(phone, msgNoSlots)
		}
		sess.Data.SlotsList = RenderSlotList(slots)
		sess.State = StateMeetingShowSlots
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateMeetingShowSlots, &sess.Data))

	case YesNoNo:
		f.sessions.Delete(phone)
		return f.send(phone, msgFarewell)

	default:
		return f.send(phone, "I did not understand. Would you like to schedule a meeting? (Yes/No)")
	}
}

// handleShowSlots parses the 1-based slot choice against a freshly generated
// list. Regenerating on every entry keeps the race window with concurrent
// bookings as small as possible.
func (f *Flow) handleShowSlots(sess *Session, text string) error {
	phone := sess.UserID

	slots, err := f.allocator.AvailableSlots(sess.Data.Grade)
	if err != nil {
		log.Printf("Slot generation failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}
	if len(slots) == 0 {
		f.sessions.Delete(phone)
		return f.send(phone, "No available slots remaining in the next three days.")
	}
	sess.Data.SlotsList = RenderSlotList(slots)

	choice, convErr := strconv.Atoi(strings.TrimSpace(text))
	if convErr != nil || choice < 1 || choice > len(slots) {
		f.sessions.Put(sess)
		if err := f.send(phone, "Invalid slot number. Please choose one of the listed options."); err != nil {
			return err
		}
		return f.send(phone, PromptForState(StateMeetingShowSlots, &sess.Data))
	}
	chosen := slots[choice-1]

	if sess.Data.StudentID == nil {
		log.Printf("Session %s chose a slot without a persisted admission", sess.SessionID)
		f.sessions.Delete(phone)
		return f.send(phone, msgGenericRetry)
	}

	existing, err := f.allocator.NextAppointment(*sess.Data.StudentID)
	if err == nil {
		// Already booked: stash the choice and ask before double-booking
		next := existing.ScheduledAt
		sess.Data.PendingSlot = &chosen
		sess.Data.ExistingAppointmentDate = &next
		sess.State = StateConfirmReplaceAppointment
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateConfirmReplaceAppointment, &sess.Data))
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("Appointment lookup failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}

	return f.bookSlot(sess, chosen, true)
}

// bookSlot attempts the booking. A conflict either re-lists availability
// (slot picking) or ends the session (replace path); other failures always
// end the session.
func (f *Flow) bookSlot(sess *Session, at time.Time, relistOnConflict bool) error {
	phone := sess.UserID

	appt, err := f.allocator.Book(*sess.Data.StudentID, at, sess.Data.Grade)
	if errors.Is(err, storage.ErrSlotTaken) {
		if !relistOnConflict {
			f.sessions.Delete(phone)
			return f.send(phone, msgBookingFailed)
		}
		if serr := f.send(phone, "Sorry, that slot just got booked. Please choose another slot number."); serr != nil {
			return serr
		}
		slots, lerr := f.allocator.AvailableSlots(sess.Data.Grade)
		if lerr != nil {
			log.Printf("Slot generation failed for %s: %v", phone, lerr)
			return f.send(phone, msgGenericRetry)
		}
		if len(slots) == 0 {
			f.sessions.Delete(phone)
			return f.send(phone, "No available slots remaining in the next three days.")
		}
		sess.Data.SlotsList = RenderSlotList(slots)
		sess.State = StateMeetingShowSlots
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateMeetingShowSlots, &sess.Data))
	}
	if err != nil {
		log.Printf("Booking failed for %s: %v", phone, err)
		f.sessions.Delete(phone)
		return f.send(phone, msgBookingFailed)
	}

	sess.Data.SlotsList = ""
	sess.Data.PendingSlot = nil
	sess.Data.ExistingAppointmentDate = nil
	sess.State = StateAwaitingContinue
	f.sessions.Put(sess)

	confirmation := fmt.Sprintf("Your meeting is scheduled for %s at %s. Reference: %s.",
		appt.ScheduledAt.Format("January 2"), appt.ScheduledAt.Format("3:04 PM"), appt.Reference)
	if err := f.send(phone, confirmation); err != nil {
		return err
	}
	return f.send(phone, PromptForState(StateAwaitingContinue, &sess.Data))
}

// handleConfirmReplace resolves the replace-or-keep question for a user who
// already holds a future appointment
func (f *Flow) handleConfirmReplace(sess *Session, text string) error {
	phone := sess.UserID

	yn, err := f.oracle.InterpretYesNo(text)
	if err != nil {
		log.Printf("Yes/no interpretation failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}

	switch yn {
	case YesNoYes:
		if sess.Data.PendingSlot == nil || sess.Data.StudentID == nil {
			log.Printf("Session %s confirmed replacement without a pending slot", sess.SessionID)
			f.sessions.Delete(phone)
			return f.send(phone, msgGenericRetry)
		}
		return f.bookSlot(sess, *sess.Data.PendingSlot, false)

	case YesNoNo:
		sess.Data.PendingSlot = nil
		sess.Data.ExistingAppointmentDate = nil
		sess.State = StateMeetingOffer
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateMeetingOffer, &sess.Data))

	default:
		return f.send(phone, PromptForState(StateConfirmReplaceAppointment, &sess.Data))
	}
}

// handleConfirmExistingData reviews a found un-enrolled admission record
func (f *Flow) handleConfirmExistingData(sess *Session, text string) error {
	phone := sess.UserID

	yn, err := f.oracle.InterpretYesNo(text)
	if err != nil {
		log.Printf("Yes/no interpretation failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}

	switch yn {
	case YesNoYes:
		sess.State = StateMeetingOffer
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateMeetingOffer, &sess.Data))
	case YesNoNo:
		sess.State = StateChooseDetailToChange
		f.sessions.Put(sess)
		return f.send(phone, PromptForState(StateChooseDetailToChange, &sess.Data))
	default:
		return f.send(phone, PromptForState(StateConfirmExistingData, &sess.Data))
	}
}

// handleConfirmBookAnother asks whether to book a second appointment when
// one already exists
func (f *Flow) handleConfirmBookAnother(sess *Session, text string) error {
	phone := sess.UserID

	yn, err := f.oracle.InterpretYesNo(text)
	if err != nil {
		log.Printf("Yes/no interpretation failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}

	switch yn {
	case YesNoYes:
		return f.resumeAdmissionData(sess)
	case YesNoNo:
		f.sessions.Delete(phone)
		return f.send(phone, msgFarewell)
	default:
		return f.send(phone, PromptForState(StateConfirmBookAnother, &sess.Data))
	}
}

// handleAwaitingContinue is the neutral hub: answer questions, resume the
// admission flow, or hand back the parked state
func (f *Flow) handleAwaitingContinue(sess *Session, text string) error {
	phone := sess.UserID

	intent, err := f.oracle.ClassifyIntent(text, string(StateAwaitingContinue))
	if err != nil {
		log.Printf("Intent classification failed for %s: %v", phone, err)
		return f.send(phone, msgGenericRetry)
	}

	switch intent {
	case IntentAskFAQ:
		return f.sendAnswer(phone, text)

	case IntentAdmissionFlow:
		// Re-run resumption with this session's data slot as scratch space
		sess.PreviousState = ""
		sess.State = StateCheckExistingAppointment
		return f.evaluateResumption(sess)

	default:
		// A detour that started at the review never resumes it: that
		// confirmation is treated as settled and the flow retires.
		if sess.PreviousState == StateAdmissionConfirm {
			sess.PreviousState = ""
			sess.IntentDisabled = true
			f.sessions.Put(sess)
			return f.send(phone, msgCompleted)
		}
		if sess.PreviousState != "" {
			restored := sess.PreviousState
			sess.PreviousState = ""
			sess.State = restored
			f.sessions.Put(sess)
			return f.send(phone, PromptForState(restored, &sess.Data))
		}
		f.sessions.Delete(phone)
		return f.greetKnownUser(phone)
	}
}

// sendAnswer answers a free-text question from the knowledge document
func (f *Flow) sendAnswer(phone, question string) error {
	answer, err := f.oracle.AnswerQuestion(question, f.knowledge)
	if err != nil {
		log.Printf("Question answering failed for %s: %v", phone, err)
		answer = ""
	}
	if answer == "" {
		answer = msgRephrase
	}
	return f.send(phone, answer)
}

// greetKnownUser personalizes the fallback greeting when the caller is a
// known guardian or student
func (f *Flow) greetKnownUser(phone string) error {
	if guardian, err := f.store.GetGuardianByMobile(phone); err == nil {
		return f.send(phone, fmt.Sprintf("Hello %s! You can ask about admissions or any general question about the school.", guardian.Name))
	}
	if contact, err := f.store.GetContactByMobile(phone); err == nil {
		if student, err := f.store.GetStudent(contact.StudentID); err == nil {
			return f.send(phone, fmt.Sprintf("Hello %s! You can ask about admissions or any general question about the school.", student.DisplayName))
		}
	}
	return f.send(phone, msgGreeting)
}

func (f *Flow) send(phone, message string) error {
	if message == "" {
		return nil
	}
	if err := f.channel.Send(phone, message); err != nil {
		log.Printf("Failed to send message to %s: %v", phone, err)
		return err
	}
	return nil
}
