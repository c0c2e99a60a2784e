package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Student represents an admission record collected through the WhatsApp flow
type Student struct {
	// Using gorm.Model gives us ID (uint), CreatedAt, UpdatedAt, DeletedAt automatically
	gorm.Model

	DisplayName string    `json:"displayname"`
	Grade       int       `json:"grade"`    // grade applied for, e.g. 3
	Semester    int       `json:"semester"` // 1 or 2
	Referral    string    `json:"referral"` // how they heard about the school
	RegDate     time.Time `json:"regdate"`
	Enrolled    bool      `json:"enrolled" gorm:"default:false"`
}

// BeforeCreate hook to normalize data before insert
func (s *Student) BeforeCreate(tx *gorm.DB) error {
	s.DisplayName = strings.TrimSpace(s.DisplayName)

	// Set registration date if not set
	if s.RegDate.IsZero() {
		s.RegDate = time.Now()
	}

	return nil
}

// Summary renders the admission details the way the review prompt shows them
func (s *Student) Summary(email string) string {
	return fmt.Sprintf("- Name: %s\n- Email: %s\n- Grade: Grade %d\n- Semester: Semester %d\n- Referral: %s",
		orNotProvided(s.DisplayName),
		orNotProvided(email),
		s.Grade,
		s.Semester,
		orNotProvided(s.Referral))
}

func orNotProvided(v string) string {
	if v == "" {
		return "Not provided"
	}
	return v
}

// StudentContactInfo holds contact details for a student; owns the phone relation
type StudentContactInfo struct {
	gorm.Model

	StudentID uint   `json:"student_id" gorm:"index"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile" gorm:"index"`  // primary WhatsApp number
	Mobile2   string `json:"mobile2" gorm:"index"` // secondary number, may be empty
}

// BeforeCreate hook to normalize phone numbers
func (c *StudentContactInfo) BeforeCreate(tx *gorm.DB) error {
	c.Mobile = NormalizePhone(c.Mobile)
	if c.Mobile2 != "" {
		c.Mobile2 = NormalizePhone(c.Mobile2)
	}
	return nil
}

// NormalizePhone strips the channel prefix and spaces from a phone number
func NormalizePhone(phone string) string {
	phone = strings.TrimPrefix(phone, "whatsapp:")
	phone = strings.ReplaceAll(phone, " ", "")
	// Drop any channel suffix like "@c.us"
	if i := strings.Index(phone, "@"); i >= 0 {
		phone = phone[:i]
	}
	return phone
}
