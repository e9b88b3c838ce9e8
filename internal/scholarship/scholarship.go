// Copyright (c) 2026 Imma Platform. All rights reserved.

// Package scholarship implements the scholarship catalogue and the student
// application flow on top of it.
package scholarship

import "time"

// Scholarship is a funding opportunity published by a university.
type Scholarship struct {
	ID           string    `json:"id"`
	UniversityID string    `json:"university_id"`
	Title        string    `json:"title"`
	Program      string    `json:"program"`
	Degree       string    `json:"degree"`
	Language     string    `json:"language"`
	Description  string    `json:"description"`
	Criteria     string    `json:"criteria"`
	Requirements string    `json:"requirements"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	PosterURL    string    `json:"poster_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EducationEntry is one line of a student's education history, embedded in
// an application as JSONB.
type EducationEntry struct {
	School  string `json:"school"`
	Course  string `json:"course"`
	Degree  string `json:"degree"`
	Country string `json:"country"`
	Status  string `json:"status"`
	Start   string `json:"start"`
	End     string `json:"end,omitempty"`
}

// Application is a student's submission against a scholarship.
type Application struct {
	ID            string           `json:"id"`
	ScholarshipID string           `json:"scholarship_id"`
	StudentID     string           `json:"student_id"`
	Education     []EducationEntry `json:"education"`
	Documents     []string         `json:"documents"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Filter holds the parameters for a paginated catalogue search.
type Filter struct {
	Query string // ILIKE search against title and program
}

const (
	FieldTitle        = "title"
	FieldProgram      = "program"
	FieldDegree       = "degree"
	FieldLanguage     = "language"
	FieldDescription  = "description"
	FieldCriteria     = "criteria"
	FieldRequirements = "requirements"
	FieldStart        = "start"
	FieldEnd          = "end"
	FieldPoster       = "poster"
	FieldEducation    = "education"
	FieldDocuments    = "documents"
)
