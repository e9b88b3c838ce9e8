// Copyright (c) 2026 Imma Platform. All rights reserved.

package scholarship

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/immahq/imma/internal/platform/apperr"
	"github.com/immahq/imma/internal/platform/objstore"
	"github.com/immahq/imma/internal/platform/validate"
	"github.com/immahq/imma/pkg/uuid"
)

// Upload is an in-memory file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Blob        []byte
}

type Service struct {
	repo      Repository
	blobStore objstore.Storer
	logger    *slog.Logger
}

func NewService(repo Repository, blobStore objstore.Storer, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		blobStore: blobStore,
		logger:    logger,
	}
}

// # Catalogue

func (service *Service) ListScholarships(context context.Context, filter Filter, limit, offset int) ([]*Scholarship, int, error) {
	return service.repo.ListScholarships(context, filter, limit, offset)
}

func (service *Service) ListOwnScholarships(context context.Context, universityID string, limit, offset int) ([]*Scholarship, int, error) {
	return service.repo.ListByUniversity(context, universityID, limit, offset)
}

func (service *Service) GetScholarship(context context.Context, id string) (*Scholarship, error) {
	return service.repo.GetScholarship(context, id)
}

// CreateInput holds the fields of a new scholarship posting plus the
// optional poster image.
type CreateInput struct {
	Title        string
	Program      string
	Degree       string
	Language     string
	Description  string
	Criteria     string
	Requirements string
	Start        string // YYYY-MM-DD
	End          string // YYYY-MM-DD
	Poster       *Upload
}

func (service *Service) CreateScholarship(context context.Context, universityID string, input CreateInput) (*Scholarship, error) {
	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, 300).
		Required(FieldProgram, input.Program).
		Required(FieldDegree, input.Degree).
		Required(FieldLanguage, input.Language).
		Required(FieldDescription, input.Description).
		Required(FieldStart, input.Start).Date(FieldStart, input.Start).
		Required(FieldEnd, input.End).Date(FieldEnd, input.End)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	start, _ := time.Parse("2006-01-02", input.Start)
	end, _ := time.Parse("2006-01-02", input.End)
	if end.Before(start) {
		return nil, validate.RequiredError(FieldEnd, "End date must not precede the start date")
	}

	posterURL := ""
	if input.Poster != nil {
		url, err := service.blobStore.Store(context, input.Poster.Filename, input.Poster.ContentType, input.Poster.Blob)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("scholarship_poster_upload_failed: %w", err))
		}
		posterURL = url
	}

	scholarship := &Scholarship{
		ID:           uuid.New(),
		UniversityID: universityID,
		Title:        input.Title,
		Program:      input.Program,
		Degree:       input.Degree,
		Language:     input.Language,
		Description:  input.Description,
		Criteria:     input.Criteria,
		Requirements: input.Requirements,
		Start:        start,
		End:          end,
		PosterURL:    posterURL,
	}

	if err := service.repo.CreateScholarship(context, scholarship); err != nil {
		return nil, err
	}

	service.logger.Info("scholarship_created",
		slog.String("scholarship_id", scholarship.ID),
		slog.String("university_id", universityID),
	)
	return scholarship, nil
}

func (service *Service) DeleteScholarship(context context.Context, universityID, id string) error {
	scholarship, err := service.repo.GetScholarship(context, id)
	if err != nil {
		return err
	}
	if scholarship.UniversityID != universityID {
		return apperr.Forbidden("Only the publishing university can delete this scholarship")
	}

	if err := service.repo.DeleteScholarship(context, id); err != nil {
		return err
	}

	service.logger.Warn("scholarship_deleted",
		slog.String("scholarship_id", id),
		slog.String("university_id", universityID),
	)
	return nil
}

// # Applications

// ApplyInput holds a student's submission: education history plus any
// supporting documents.
type ApplyInput struct {
	Education []EducationEntry
	Documents []Upload
}

func (service *Service) Apply(context context.Context, studentID, scholarshipID string, input ApplyInput) (*Application, error) {
	scholarship, err := service.repo.GetScholarship(context, scholarshipID)
	if err != nil {
		return nil, err
	}

	// Submissions close at the end of the scholarship's last day.
	if time.Now().After(scholarship.End.Add(24 * time.Hour)) {
		return nil, apperr.Unprocessable("Applications are closed for this scholarship")
	}

	validator := &validate.Validator{}
	validator.Custom(FieldEducation, len(input.Education) == 0, "At least one education entry is required")
	for _, entry := range input.Education {
		if entry.School == "" || entry.Degree == "" {
			validator.Custom(FieldEducation, true, "Each entry needs a school and a degree")
			break
		}
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	documentURLs := make([]string, 0, len(input.Documents))
	for _, document := range input.Documents {
		url, err := service.blobStore.Store(context, document.Filename, document.ContentType, document.Blob)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("application_document_upload_failed: %w", err))
		}
		documentURLs = append(documentURLs, url)
	}

	application := &Application{
		ID:            uuid.New(),
		ScholarshipID: scholarshipID,
		StudentID:     studentID,
		Education:     input.Education,
		Documents:     documentURLs,
	}

	if err := service.repo.CreateApplication(context, application); err != nil {
		return nil, err
	}

	service.logger.Info("application_submitted",
		slog.String("application_id", application.ID),
		slog.String("scholarship_id", scholarshipID),
	)
	return application, nil
}

func (service *Service) ListOwnApplications(context context.Context, studentID string, limit, offset int) ([]*Application, int, error) {
	return service.repo.ListApplicationsByStudent(context, studentID, limit, offset)
}

func (service *Service) ListScholarshipApplications(context context.Context, universityID, scholarshipID string, limit, offset int) ([]*Application, int, error) {
	scholarship, err := service.repo.GetScholarship(context, scholarshipID)
	if err != nil {
		return nil, 0, err
	}
	if scholarship.UniversityID != universityID {
		return nil, 0, apperr.Forbidden("Only the publishing university can view these applications")
	}

	return service.repo.ListApplicationsByScholarship(context, scholarshipID, limit, offset)
}
