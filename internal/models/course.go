package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CourseStatus values.
const (
	CourseStatusDraft     = "DRAFT"
	CourseStatusInReview  = "IN_REVIEW"
	CourseStatusPublished = "PUBLISHED"
	CourseStatusPaused    = "PAUSED"
	CourseStatusArchived  = "ARCHIVED"
)

// Course difficulty levels.
const (
	DifficultyBeginner     = "BEGINNER"
	DifficultyIntermediate = "INTERMEDIATE"
	DifficultyAdvanced     = "ADVANCED"
)

// Category groups courses in the catalog.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// Course is a purchasable course with a limited number of seats.
type Course struct {
	ID              uuid.UUID           `json:"id"`
	InstructorID    uuid.UUID           `json:"instructor_id"`
	CategoryID      *uuid.UUID          `json:"category_id,omitempty"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Difficulty      string              `json:"difficulty"`
	DurationHours   int                 `json:"duration_hours"`
	Price           decimal.Decimal     `json:"price"`
	DiscountedPrice decimal.NullDecimal `json:"discounted_price"`
	Status          string              `json:"status"`
	TotalSlots      int                 `json:"total_slots"`
	AvailableSlots  int                 `json:"available_slots"`
	PublishedAt     *time.Time          `json:"published_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// FinalPrice returns the discounted price when set, otherwise the list price.
func (c *Course) FinalPrice() decimal.Decimal {
	if c.DiscountedPrice.Valid {
		return c.DiscountedPrice.Decimal
	}
	return c.Price
}

// IsPurchasable reports whether the course is published and still has seats.
func (c *Course) IsPurchasable() bool {
	return c.Status == CourseStatusPublished && c.AvailableSlots > 0
}

// Module is an ordered section of a course.
type Module struct {
	ID       uuid.UUID `json:"id"`
	CourseID uuid.UUID `json:"course_id"`
	Title    string    `json:"title"`
	Position int       `json:"position"`
	Lessons  []*Lesson `json:"lessons,omitempty"`
}

// Lesson is an ordered unit inside a module.
type Lesson struct {
	ID              uuid.UUID `json:"id"`
	ModuleID        uuid.UUID `json:"module_id"`
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content,omitempty"`
	Position        int       `json:"position"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Rating is one user's 1..5 score for a course.
type Rating struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CourseID  uuid.UUID `json:"course_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingSummary aggregates ratings for a course.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
