package models

import (
	"time"

	"github.com/google/uuid"
)

// Certificate proves 100% completion of a course.
type Certificate struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	CourseID         uuid.UUID `json:"course_id"`
	Serial           string    `json:"serial"`
	VerificationCode string    `json:"verification_code"`
	IssuedAt         time.Time `json:"issued_at"`
}

// Diploma proves a passed certification exam. Score is updated on later passes.
type Diploma struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	CertificationID  uuid.UUID `json:"certification_id"`
	VerificationCode string    `json:"verification_code"`
	Score            int       `json:"score"`
	IssuedAt         time.Time `json:"issued_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
