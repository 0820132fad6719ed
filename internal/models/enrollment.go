package models

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus values.
const (
	EnrollmentStatusActive    = "ACTIVE"
	EnrollmentStatusCompleted = "COMPLETED"
	EnrollmentStatusCancelled = "CANCELLED"
)

// Enrollment links a user to a course they bought.
type Enrollment struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	CourseID    uuid.UUID  `json:"course_id"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Status      string     `json:"status"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GrantsAccess reports whether the enrollment still opens the course content.
func (e *Enrollment) GrantsAccess() bool {
	return e.Status == EnrollmentStatusActive || e.Status == EnrollmentStatusCompleted
}

// Progress is lesson completion for one user in one course.
type Progress struct {
	CourseID  uuid.UUID `json:"course_id"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Percent   int       `json:"percent"`
}

// IsComplete reports 100% completion. A course without lessons is never complete.
func (p Progress) IsComplete() bool {
	return p.Total > 0 && p.Completed >= p.Total
}
