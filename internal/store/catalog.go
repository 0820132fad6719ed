package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/marketplace/internal/models"
)

const courseColumns = `c.id, c.instructor_id, c.category_id, c.title, c.description, c.difficulty, c.duration_hours,
	c.price, c.discounted_price, c.status, c.total_slots, c.available_slots, c.published_at, c.created_at, c.updated_at`

func scanCourse(s scanner) (*models.Course, error) {
	var c models.Course
	err := s.Scan(&c.ID, &c.InstructorID, &c.CategoryID, &c.Title, &c.Description, &c.Difficulty, &c.DurationHours,
		&c.Price, &c.DiscountedPrice, &c.Status, &c.TotalSlots, &c.AvailableSlots, &c.PublishedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *queries) listCourses(ctx context.Context, q string, args ...any) ([]*models.Course, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ListPublishedCourses returns published courses, newest first, optionally filtered by category slug.
func (r *queries) ListPublishedCourses(ctx context.Context, categorySlug string) ([]*models.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses c
		LEFT JOIN categories cat ON cat.id = c.category_id
		WHERE c.status = 'PUBLISHED' AND ($1 = '' OR cat.slug = $1)
		ORDER BY c.published_at DESC NULLS LAST, c.created_at DESC`
	return r.listCourses(ctx, q, categorySlug)
}

// ListCoursesByInstructor returns every course owned by the instructor.
func (r *queries) ListCoursesByInstructor(ctx context.Context, instructorID uuid.UUID) ([]*models.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses c WHERE c.instructor_id = $1 ORDER BY c.created_at DESC`
	return r.listCourses(ctx, q, instructorID)
}

// CountPublishedCourses returns the number of published courses.
func (r *queries) CountPublishedCourses(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM courses WHERE status = 'PUBLISHED'`)
}

// GetCourse returns a course by ID.
func (r *queries) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses c WHERE c.id = $1`
	c, err := scanCourse(r.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// CreateCourse inserts a course and fills its generated fields.
func (r *queries) CreateCourse(ctx context.Context, c *models.Course) error {
	const q = `INSERT INTO courses (instructor_id, category_id, title, description, difficulty, duration_hours,
		price, discounted_price, status, total_slots, available_slots)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, c.InstructorID, c.CategoryID, c.Title, c.Description, c.Difficulty, c.DurationHours,
		c.Price, c.DiscountedPrice, c.Status, c.TotalSlots, c.AvailableSlots).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// UpdateCourseStatus flips status only when it currently equals from.
func (r *queries) UpdateCourseStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) (bool, error) {
	const q = `UPDATE courses SET status = $3, updated_at = $4,
		published_at = CASE WHEN $3 = 'PUBLISHED' THEN $4 ELSE published_at END
		WHERE id = $1 AND status = $2`
	tag, err := r.db.Exec(ctx, q, id, from, to, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AdjustCourseSlots adds delta to available_slots, clamped to [0, total_slots], and
// returns the change actually applied.
func (r *queries) AdjustCourseSlots(ctx context.Context, courseID uuid.UUID, delta int) (int, error) {
	const q = `WITH prev AS (
			SELECT available_slots FROM courses WHERE id = $1 FOR UPDATE
		)
		UPDATE courses c
		SET available_slots = LEAST(GREATEST(c.available_slots + $2, 0), c.total_slots), updated_at = NOW()
		FROM prev
		WHERE c.id = $1
		RETURNING c.available_slots - prev.available_slots`
	var applied int
	if err := r.db.QueryRow(ctx, q, courseID, delta).Scan(&applied); err != nil {
		return 0, notFound(err)
	}
	return applied, nil
}

// ListModules returns the course modules with their lessons, both in position order.
func (r *queries) ListModules(ctx context.Context, courseID uuid.UUID) ([]*models.Module, error) {
	rows, err := r.db.Query(ctx, `SELECT id, course_id, title, position FROM course_modules WHERE course_id = $1 ORDER BY position, id`, courseID)
	if err != nil {
		return nil, err
	}
	var modules []*models.Module
	byID := make(map[uuid.UUID]*models.Module)
	for rows.Next() {
		var m models.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Position); err != nil {
			rows.Close()
			return nil, err
		}
		modules = append(modules, &m)
		byID[m.ID] = &m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const lq = `SELECT id, module_id, course_id, title, content, position, duration_minutes
		FROM lessons WHERE course_id = $1 ORDER BY position, id`
	lrows, err := r.db.Query(ctx, lq, courseID)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var l models.Lesson
		if err := lrows.Scan(&l.ID, &l.ModuleID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.DurationMinutes); err != nil {
			return nil, err
		}
		if m, ok := byID[l.ModuleID]; ok {
			m.Lessons = append(m.Lessons, &l)
		}
	}
	return modules, lrows.Err()
}

// CreateModule inserts a module.
func (r *queries) CreateModule(ctx context.Context, m *models.Module) error {
	const q = `INSERT INTO course_modules (course_id, title, position) VALUES ($1, $2, $3) RETURNING id`
	return r.db.QueryRow(ctx, q, m.CourseID, m.Title, m.Position).Scan(&m.ID)
}

// GetModule returns a module without lessons.
func (r *queries) GetModule(ctx context.Context, id uuid.UUID) (*models.Module, error) {
	var m models.Module
	err := r.db.QueryRow(ctx, `SELECT id, course_id, title, position FROM course_modules WHERE id = $1`, id).
		Scan(&m.ID, &m.CourseID, &m.Title, &m.Position)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// CreateLesson inserts a lesson.
func (r *queries) CreateLesson(ctx context.Context, l *models.Lesson) error {
	const q = `INSERT INTO lessons (module_id, course_id, title, content, position, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return r.db.QueryRow(ctx, q, l.ModuleID, l.CourseID, l.Title, l.Content, l.Position, l.DurationMinutes).Scan(&l.ID)
}

// GetLesson returns a lesson by ID.
func (r *queries) GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	const q = `SELECT id, module_id, course_id, title, content, position, duration_minutes FROM lessons WHERE id = $1`
	var l models.Lesson
	err := r.db.QueryRow(ctx, q, id).Scan(&l.ID, &l.ModuleID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.DurationMinutes)
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// GetRatingSummary returns the raw average and count of ratings for a course.
func (r *queries) GetRatingSummary(ctx context.Context, courseID uuid.UUID) (models.RatingSummary, error) {
	var s models.RatingSummary
	err := r.db.QueryRow(ctx, `SELECT COALESCE(AVG(score), 0)::float8, COUNT(*) FROM ratings WHERE course_id = $1`, courseID).
		Scan(&s.Average, &s.Count)
	return s, err
}

// UpsertRating creates or replaces the user's rating for a course.
func (r *queries) UpsertRating(ctx context.Context, rt *models.Rating) error {
	const q = `INSERT INTO ratings (user_id, course_id, score, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, course_id) DO UPDATE SET score = EXCLUDED.score, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, rt.UserID, rt.CourseID, rt.Score, rt.Comment, rt.UpdatedAt).
		Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt)
}

const certificationColumns = `id, slug, name, description, price, is_active, display_order, created_at`

func scanCertification(s scanner) (*models.Certification, error) {
	var c models.Certification
	if err := s.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.Price, &c.IsActive, &c.DisplayOrder, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListActiveCertifications returns active certifications in display order.
func (r *queries) ListActiveCertifications(ctx context.Context) ([]*models.Certification, error) {
	rows, err := r.db.Query(ctx, `SELECT `+certificationColumns+` FROM certifications WHERE is_active ORDER BY display_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Certification
	for rows.Next() {
		c, err := scanCertification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// GetCertification returns a certification by ID.
func (r *queries) GetCertification(ctx context.Context, id uuid.UUID) (*models.Certification, error) {
	c, err := scanCertification(r.db.QueryRow(ctx, `SELECT `+certificationColumns+` FROM certifications WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// GetCertificationBySlug returns a certification by slug.
func (r *queries) GetCertificationBySlug(ctx context.Context, slug string) (*models.Certification, error) {
	c, err := scanCertification(r.db.QueryRow(ctx, `SELECT `+certificationColumns+` FROM certifications WHERE slug = $1`, slug))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// GetExamByCertification returns the exam with questions and options in position order.
func (r *queries) GetExamByCertification(ctx context.Context, certificationID uuid.UUID) (*models.Exam, error) {
	var e models.Exam
	err := r.db.QueryRow(ctx, `SELECT id, certification_id, title, passing_percent FROM exams WHERE certification_id = $1`, certificationID).
		Scan(&e.ID, &e.CertificationID, &e.Title, &e.PassingPercent)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := r.db.Query(ctx, `SELECT id, exam_id, position, text FROM exam_questions WHERE exam_id = $1 ORDER BY position, id`, e.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.ExamQuestion)
	for rows.Next() {
		var q models.ExamQuestion
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Position, &q.Text); err != nil {
			rows.Close()
			return nil, err
		}
		e.Questions = append(e.Questions, &q)
		byID[q.ID] = &q
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const oq = `SELECT o.id, o.question_id, o.text, o.is_correct
		FROM answer_options o JOIN exam_questions q ON q.id = o.question_id
		WHERE q.exam_id = $1 ORDER BY q.position, o.id`
	orows, err := r.db.Query(ctx, oq, e.ID)
	if err != nil {
		return nil, err
	}
	defer orows.Close()
	for orows.Next() {
		var o models.AnswerOption
		if err := orows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
			return nil, err
		}
		if q, ok := byID[o.QuestionID]; ok {
			q.Options = append(q.Options, &o)
		}
	}
	return &e, orows.Err()
}

// CountCourseLessons returns the number of lessons in a course.
func (r *queries) CountCourseLessons(ctx context.Context, courseID uuid.UUID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM lessons WHERE course_id = $1`, courseID)
}

// CountCompletedLessons returns how many lessons of the course the user completed.
func (r *queries) CountCompletedLessons(ctx context.Context, userID, courseID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM lesson_progress lp JOIN lessons l ON l.id = lp.lesson_id
		WHERE lp.user_id = $1 AND l.course_id = $2`
	return r.count(ctx, q, userID, courseID)
}

// MarkLessonCompleted records completion once; repeats are no-ops.
func (r *queries) MarkLessonCompleted(ctx context.Context, userID, lessonID uuid.UUID, at time.Time) error {
	const q = `INSERT INTO lesson_progress (user_id, lesson_id, completed_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, lesson_id) DO NOTHING`
	_, err := r.db.Exec(ctx, q, userID, lessonID, at)
	return err
}
