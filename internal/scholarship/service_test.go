// Copyright (c) 2026 Imma Platform. All rights reserved.

package scholarship_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immahq/imma/internal/platform/apperr"
	"github.com/immahq/imma/internal/scholarship"
)

// # In-Memory Fakes

type fakeRepository struct {
	scholarships map[string]*scholarship.Scholarship
	applications map[string]*scholarship.Application
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		scholarships: map[string]*scholarship.Scholarship{},
		applications: map[string]*scholarship.Application{},
	}
}

func (repo *fakeRepository) ListScholarships(_ context.Context, _ scholarship.Filter, limit, offset int) ([]*scholarship.Scholarship, int, error) {
	all := make([]*scholarship.Scholarship, 0, len(repo.scholarships))
	for _, s := range repo.scholarships {
		all = append(all, s)
	}
	return page(all, limit, offset), len(all), nil
}

func (repo *fakeRepository) ListByUniversity(_ context.Context, universityID string, limit, offset int) ([]*scholarship.Scholarship, int, error) {
	var owned []*scholarship.Scholarship
	for _, s := range repo.scholarships {
		if s.UniversityID == universityID {
			owned = append(owned, s)
		}
	}
	return page(owned, limit, offset), len(owned), nil
}

func (repo *fakeRepository) GetScholarship(_ context.Context, id string) (*scholarship.Scholarship, error) {
	s, ok := repo.scholarships[id]
	if !ok {
		return nil, apperr.NotFound("Scholarship")
	}
	return s, nil
}

func (repo *fakeRepository) CreateScholarship(_ context.Context, s *scholarship.Scholarship) error {
	repo.scholarships[s.ID] = s
	return nil
}

func (repo *fakeRepository) DeleteScholarship(_ context.Context, id string) error {
	delete(repo.scholarships, id)
	return nil
}

func (repo *fakeRepository) CreateApplication(_ context.Context, a *scholarship.Application) error {
	for _, existing := range repo.applications {
		if existing.ScholarshipID == a.ScholarshipID && existing.StudentID == a.StudentID {
			return apperr.Conflict("Application already exists")
		}
	}
	repo.applications[a.ID] = a
	return nil
}

func (repo *fakeRepository) ListApplicationsByStudent(_ context.Context, studentID string, limit, offset int) ([]*scholarship.Application, int, error) {
	var mine []*scholarship.Application
	for _, a := range repo.applications {
		if a.StudentID == studentID {
			mine = append(mine, a)
		}
	}
	return page(mine, limit, offset), len(mine), nil
}

func (repo *fakeRepository) ListApplicationsByScholarship(_ context.Context, scholarshipID string, limit, offset int) ([]*scholarship.Application, int, error) {
	var submitted []*scholarship.Application
	for _, a := range repo.applications {
		if a.ScholarshipID == scholarshipID {
			submitted = append(submitted, a)
		}
	}
	return page(submitted, limit, offset), len(submitted), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type fakeBlobStore struct {
	stored []string
}

func (store *fakeBlobStore) Store(_ context.Context, filename, _ string, _ []byte) (string, error) {
	url := "https://blobs.test/" + filename
	store.stored = append(store.stored, url)
	return url, nil
}

// # Fixture

func newTestService() (*scholarship.Service, *fakeRepository, *fakeBlobStore) {
	repo := newFakeRepository()
	blobs := &fakeBlobStore{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return scholarship.NewService(repo, blobs, logger), repo, blobs
}

func validCreateInput() scholarship.CreateInput {
	return scholarship.CreateInput{
		Title:       "Graduate Research Fellowship",
		Program:     "Computer Science",
		Degree:      "MSc",
		Language:    "English",
		Description: "Full funding for two years.",
		Start:       time.Now().AddDate(0, 0, -7).Format("2006-01-02"),
		End:         time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
	}
}

// # Catalogue

/*
TestCreateScholarship covers validation, poster upload, and persistence.
*/
func TestCreateScholarship(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()

	// 1. Missing required fields.
	_, err := service.CreateScholarship(ctx, "uni-1", scholarship.CreateInput{})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	// 2. End before start.
	bad := validCreateInput()
	bad.Start, bad.End = bad.End, bad.Start
	_, err = service.CreateScholarship(ctx, "uni-1", bad)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	// 3. Happy path with a poster.
	input := validCreateInput()
	input.Poster = &scholarship.Upload{Filename: "poster.png", ContentType: "image/png", Blob: []byte("png")}

	created, err := service.CreateScholarship(ctx, "uni-1", input)
	require.NoError(t, err)
	assert.Equal(t, "uni-1", created.UniversityID)
	assert.Equal(t, "https://blobs.test/poster.png", created.PosterURL)
	assert.Contains(t, repo.scholarships, created.ID)
}

/*
TestDeleteScholarship verifies only the publishing university can delete.
*/
func TestDeleteScholarship(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()

	created, err := service.CreateScholarship(ctx, "uni-1", validCreateInput())
	require.NoError(t, err)

	// 1. Another university is refused.
	err = service.DeleteScholarship(ctx, "uni-2", created.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)
	assert.Contains(t, repo.scholarships, created.ID)

	// 2. The owner succeeds.
	require.NoError(t, service.DeleteScholarship(ctx, "uni-1", created.ID))
	assert.NotContains(t, repo.scholarships, created.ID)

	// 3. Deleting a missing scholarship is not found.
	err = service.DeleteScholarship(ctx, "uni-1", created.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

// # Applications

func validApplyInput() scholarship.ApplyInput {
	return scholarship.ApplyInput{
		Education: []scholarship.EducationEntry{
			{School: "Imperial College", Course: "Computing", Degree: "BSc", Country: "UK", Status: "graduated", Start: "2019-09-01", End: "2022-06-30"},
		},
	}
}

/*
TestApply covers the submission rules: open window, education history
required, document upload, and double-submission conflict.
*/
func TestApply(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()

	created, err := service.CreateScholarship(ctx, "uni-1", validCreateInput())
	require.NoError(t, err)

	// 1. Empty education history is rejected.
	_, err = service.Apply(ctx, "student-1", created.ID, scholarship.ApplyInput{})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)

	// 2. Happy path with documents.
	input := validApplyInput()
	input.Documents = []scholarship.Upload{{Filename: "transcript.pdf", ContentType: "application/pdf", Blob: []byte("pdf")}}

	application, err := service.Apply(ctx, "student-1", created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://blobs.test/transcript.pdf"}, application.Documents)
	assert.Contains(t, repo.applications, application.ID)

	// 3. A second submission by the same student is a conflict.
	_, err = service.Apply(ctx, "student-1", created.ID, validApplyInput())
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

/*
TestApply_AfterEndDate verifies closed scholarships refuse submissions.
*/
func TestApply_AfterEndDate(t *testing.T) {
	service, repo, _ := newTestService()
	ctx := context.Background()

	created, err := service.CreateScholarship(ctx, "uni-1", validCreateInput())
	require.NoError(t, err)

	// Close the window well in the past.
	repo.scholarships[created.ID].End = time.Now().AddDate(0, 0, -30)

	_, err = service.Apply(ctx, "student-1", created.ID, validApplyInput())
	require.Error(t, err)
	assert.Equal(t, "UNPROCESSABLE", apperr.As(err).Code)
}

/*
TestListScholarshipApplications verifies the owner check on the review list.
*/
func TestListScholarshipApplications(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	created, err := service.CreateScholarship(ctx, "uni-1", validCreateInput())
	require.NoError(t, err)

	_, err = service.Apply(ctx, "student-1", created.ID, validApplyInput())
	require.NoError(t, err)

	// 1. A non-owner is refused.
	_, _, err = service.ListScholarshipApplications(ctx, "uni-2", created.ID, 20, 0)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	// 2. The owner sees the submissions.
	applications, total, err := service.ListScholarshipApplications(ctx, "uni-1", created.ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, applications, 1)
	assert.Equal(t, "student-1", applications[0].StudentID)
}
