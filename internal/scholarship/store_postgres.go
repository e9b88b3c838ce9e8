// Copyright (c) 2026 Imma Platform. All rights reserved.

package scholarship

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immahq/imma/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const scholarshipColumns = `
	id, universityid, title, program, degree, language,
	description, criteria, requirements, startdate, enddate,
	posterurl, createdat, updatedat`

func (repository *PostgresRepository) ListScholarships(context context.Context, f Filter, limit, offset int) ([]*Scholarship, int, error) {
	query := `SELECT ` + scholarshipColumns + ` FROM core.scholarship`
	countQuery := `SELECT count(*) FROM core.scholarship`

	args := []any{}
	countArgs := []any{}

	if f.Query != "" {
		searchTerm := "%" + f.Query + "%"
		query += ` WHERE (title ILIKE $1 OR program ILIKE $1)`
		countQuery += ` WHERE (title ILIKE $1 OR program ILIKE $1)`
		args = append(args, searchTerm)
		countArgs = append(countArgs, searchTerm)
	}

	var total int
	if err := repository.db.QueryRow(context, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "Scholarships")
	}

	if len(args) == 0 {
		query += ` ORDER BY enddate DESC LIMIT $1 OFFSET $2`
	} else {
		query += ` ORDER BY enddate DESC LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "Scholarships")
	}
	defer rows.Close()

	return scanScholarships(rows, total)
}

func (repository *PostgresRepository) ListByUniversity(context context.Context, universityID string, limit, offset int) ([]*Scholarship, int, error) {
	countQuery := `SELECT count(*) FROM core.scholarship WHERE universityid = $1`

	var total int
	if err := repository.db.QueryRow(context, countQuery, universityID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "Scholarships")
	}

	query := `SELECT ` + scholarshipColumns + `
		FROM core.scholarship
		WHERE universityid = $1
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	rows, err := repository.db.Query(context, query, universityID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "Scholarships")
	}
	defer rows.Close()

	return scanScholarships(rows, total)
}

func (repository *PostgresRepository) GetScholarship(context context.Context, id string) (*Scholarship, error) {
	query := `SELECT ` + scholarshipColumns + ` FROM core.scholarship WHERE id = $1`

	s := &Scholarship{}
	err := repository.db.QueryRow(context, query, id).Scan(
		&s.ID, &s.UniversityID, &s.Title, &s.Program, &s.Degree, &s.Language,
		&s.Description, &s.Criteria, &s.Requirements, &s.Start, &s.End,
		&s.PosterURL, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "Scholarship")
	}

	return s, nil
}

func (repository *PostgresRepository) CreateScholarship(context context.Context, s *Scholarship) error {
	const query = `
		INSERT INTO core.scholarship (
			id, universityid, title, program, degree, language,
			description, criteria, requirements, startdate, enddate,
			posterurl, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := repository.db.Exec(context, query,
		s.ID, s.UniversityID, s.Title, s.Program, s.Degree, s.Language,
		s.Description, s.Criteria, s.Requirements, s.Start, s.End,
		s.PosterURL, s.CreatedAt, s.UpdatedAt,
	)
	return dberr.Wrap(err, "Scholarship")
}

func (repository *PostgresRepository) DeleteScholarship(context context.Context, id string) error {
	cmd, err := repository.db.Exec(context, `DELETE FROM core.scholarship WHERE id = $1`, id)
	if err != nil {
		return dberr.Wrap(err, "Scholarship")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, "Scholarship")
	}
	return nil
}

// # Applications

func (repository *PostgresRepository) CreateApplication(context context.Context, a *Application) error {
	const query = `
		INSERT INTO core.application (
			id, scholarshipid, studentid, education, documents, createdat
		) VALUES ($1, $2, $3, $4, $5, $6)`

	a.CreatedAt = time.Now()

	_, err := repository.db.Exec(context, query,
		a.ID, a.ScholarshipID, a.StudentID, a.Education, a.Documents, a.CreatedAt,
	)
	// UNIQUE (scholarshipid, studentid) turns a double submission into a Conflict.
	return dberr.Wrap(err, "Application")
}

func (repository *PostgresRepository) ListApplicationsByStudent(context context.Context, studentID string, limit, offset int) ([]*Application, int, error) {
	var total int
	if err := repository.db.QueryRow(context,
		`SELECT count(*) FROM core.application WHERE studentid = $1`, studentID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "Applications")
	}

	const query = `
		SELECT id, scholarshipid, studentid, education, documents, createdat
		FROM core.application
		WHERE studentid = $1
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	rows, err := repository.db.Query(context, query, studentID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "Applications")
	}
	defer rows.Close()

	return scanApplications(rows, total)
}

func (repository *PostgresRepository) ListApplicationsByScholarship(context context.Context, scholarshipID string, limit, offset int) ([]*Application, int, error) {
	var total int
	if err := repository.db.QueryRow(context,
		`SELECT count(*) FROM core.application WHERE scholarshipid = $1`, scholarshipID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "Applications")
	}

	const query = `
		SELECT id, scholarshipid, studentid, education, documents, createdat
		FROM core.application
		WHERE scholarshipid = $1
		ORDER BY createdat ASC
		LIMIT $2 OFFSET $3`

	rows, err := repository.db.Query(context, query, scholarshipID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "Applications")
	}
	defer rows.Close()

	return scanApplications(rows, total)
}

func scanScholarships(rows pgx.Rows, total int) ([]*Scholarship, int, error) {
	var scholarships []*Scholarship
	for rows.Next() {
		s := &Scholarship{}
		if err := rows.Scan(
			&s.ID, &s.UniversityID, &s.Title, &s.Program, &s.Degree, &s.Language,
			&s.Description, &s.Criteria, &s.Requirements, &s.Start, &s.End,
			&s.PosterURL, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "Scholarship")
		}
		scholarships = append(scholarships, s)
	}
	return scholarships, total, rows.Err()
}

func scanApplications(rows pgx.Rows, total int) ([]*Application, int, error) {
	var applications []*Application
	for rows.Next() {
		a := &Application{}
		if err := rows.Scan(
			&a.ID, &a.ScholarshipID, &a.StudentID, &a.Education, &a.Documents, &a.CreatedAt,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "Application")
		}
		applications = append(applications, a)
	}
	return applications, total, rows.Err()
}
