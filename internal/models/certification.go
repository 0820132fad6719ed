package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPassingPercent is used when an exam has no passing threshold configured.
const DefaultPassingPercent = 70

// Certification is an industry certification sold alongside courses.
type Certification struct {
	ID           uuid.UUID       `json:"id"`
	Slug         string          `json:"slug"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	IsActive     bool            `json:"is_active"`
	DisplayOrder int             `json:"display_order"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CertificationAccess grants a user the study material and exam of a certification.
type CertificationAccess struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	CertificationID uuid.UUID  `json:"certification_id"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	GrantedAt       time.Time  `json:"granted_at"`
}

// Exam is the fixed quiz of a certification.
type Exam struct {
	ID              uuid.UUID       `json:"id"`
	CertificationID uuid.UUID       `json:"certification_id"`
	Title           string          `json:"title"`
	PassingPercent  int             `json:"passing_percent"`
	Questions       []*ExamQuestion `json:"questions"`
}

// ExamQuestion is a single-answer multiple choice question.
type ExamQuestion struct {
	ID       uuid.UUID       `json:"id"`
	ExamID   uuid.UUID       `json:"exam_id"`
	Position int             `json:"position"`
	Text     string          `json:"text"`
	Options  []*AnswerOption `json:"options"`
}

// AnswerOption is one choice of a question. IsCorrect is never serialized.
type AnswerOption struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"-"`
}
