package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartCourseItem is a course line in a user's cart.
type CartCourseItem struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	CourseID uuid.UUID `json:"course_id"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
	Course   *Course   `json:"course,omitempty"`
}

// LineTotal is the course final price times quantity.
func (i *CartCourseItem) LineTotal() decimal.Decimal {
	if i.Course == nil {
		return decimal.Zero
	}
	return i.Course.FinalPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartCertificationItem is a certification line in a user's cart.
type CartCertificationItem struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"user_id"`
	CertificationID uuid.UUID      `json:"certification_id"`
	Quantity        int            `json:"quantity"`
	AddedAt         time.Time      `json:"added_at"`
	Certification   *Certification `json:"certification,omitempty"`
}

// LineTotal is the certification price times quantity.
func (i *CartCertificationItem) LineTotal() decimal.Decimal {
	if i.Certification == nil {
		return decimal.Zero
	}
	return i.Certification.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
