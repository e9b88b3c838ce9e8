// Copyright (c) 2026 Imma Platform. All rights reserved.

package scholarship

import "context"

type Repository interface {
	ListScholarships(context context.Context, f Filter, limit, offset int) ([]*Scholarship, int, error)
	ListByUniversity(context context.Context, universityID string, limit, offset int) ([]*Scholarship, int, error)
	GetScholarship(context context.Context, id string) (*Scholarship, error)
	CreateScholarship(context context.Context, s *Scholarship) error
	DeleteScholarship(context context.Context, id string) error

	CreateApplication(context context.Context, a *Application) error
	ListApplicationsByStudent(context context.Context, studentID string, limit, offset int) ([]*Application, int, error)
	ListApplicationsByScholarship(context context.Context, scholarshipID string, limit, offset int) ([]*Application, int, error)
}
