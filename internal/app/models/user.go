package models

import "time"

// User is a login account. Student accounts point at their student profile.
type User struct {
	ID          int64      `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	Password    string     `json:"-" db:"password_hash"`
	FullName    string     `json:"fullName" db:"full_name"`
	RoleType    RoleType   `json:"roleType" db:"role"`
	StudentID   *int64     `json:"studentId,omitempty" db:"student_id"`
	IsActive    bool       `json:"isActive" db:"is_active"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}
