package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// RoleType defines the user role type
type RoleType string

const (
	RoleAdmin   RoleType = "admin"
	RoleStaff   RoleType = "staff"
	RoleStudent RoleType = "student"
)

// IsValid reports whether r is a known role
func (r RoleType) IsValid() bool {
	return r == RoleAdmin || r == RoleStaff || r == RoleStudent
}

// IsStaff reports whether r can manage other students' records
func (r RoleType) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff
}

// CompetencyLevel is the skill tier assigned to a student or course
type CompetencyLevel string

const (
	CompetencyBasic  CompetencyLevel = "basic"
	CompetencyCommon CompetencyLevel = "common"
	CompetencyCore   CompetencyLevel = "core"
)

// CompetencyLevels lists every tier in ascending order
var CompetencyLevels = []CompetencyLevel{CompetencyBasic, CompetencyCommon, CompetencyCore}

// IsValid reports whether c is a known tier
func (c CompetencyLevel) IsValid() bool {
	return c == CompetencyBasic || c == CompetencyCommon || c == CompetencyCore
}

// ParseDate parses a YYYY-MM-DD string. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}

// Today returns the current date truncated to midnight UTC
func Today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
