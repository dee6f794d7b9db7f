package providers

import (
	"context"

	"tutorly/internal/domain"
)

// CourseProvider is the remote catalog.
type CourseProvider interface {
	ListCourses(ctx context.Context, f domain.CourseListFilter) ([]domain.Course, error)
	GetCourse(ctx context.Context, id int) (domain.Course, error)
}

// ProgressProvider loads and stores a learner's completed topic set.
type ProgressProvider interface {
	GetProgress(ctx context.Context, courseID int) ([]int, error)
	SaveProgress(ctx context.Context, courseID int, completed []int) error
}

type EnrollmentProvider interface {
	Enroll(ctx context.Context, courseID int) (string, error)
	Rate(ctx context.Context, courseID int, sub domain.FeedbackSubmission) (string, error)
}

type AccountProvider interface {
	Register(ctx context.Context, req domain.RegisterRequest) error
	Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
	Profile(ctx context.Context) (domain.Profile, error)
	UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (string, error)
	ChangePassword(ctx context.Context, pc domain.PasswordChange) (string, error)
}

// FeedbackProvider lists the public ratings of a course.
type FeedbackProvider interface {
	CourseFeedback(ctx context.Context, id int) ([]domain.Interaction, error)
}

type RecommendationProvider interface {
	Recommendations(ctx context.Context) ([]domain.Course, error)
}

// Service is everything the client consumes from the remote service.
type Service interface {
	CourseProvider
	ProgressProvider
	EnrollmentProvider
	AccountProvider
	FeedbackProvider
	RecommendationProvider
}
