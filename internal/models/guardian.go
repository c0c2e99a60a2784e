package models

import "gorm.io/gorm"

// Guardian represents a parent/guardian already known to the school.
// Used only for the role lookup that personalizes the fallback greeting.
type Guardian struct {
	gorm.Model

	Name   string `json:"name"`
	Mobile string `json:"mobile" gorm:"index"`
}

// Role constants for the lookup result
const (
	RoleParent  = "parent"
	RoleStudent = "student"
	RoleVisitor = "visitor"
)
