// Copyright (c) 2026 Imma Platform. All rights reserved.

package scholarship

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/immahq/imma/internal/platform/apperr"
	"github.com/immahq/imma/internal/platform/middleware"
	requestutil "github.com/immahq/imma/internal/platform/request"
	"github.com/immahq/imma/internal/platform/respond"
	"github.com/immahq/imma/internal/platform/sec"
	"github.com/immahq/imma/pkg/pagination"
)

// maxSubmissionFormSize bounds the multipart body of a scholarship posting
// or an application (metadata plus files).
const maxSubmissionFormSize = 32 << 20 // 32 MiB

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) RegisterRoutes(router chi.Router) {
	// Public catalogue
	router.Get("/", handler.listScholarships)
	router.Get("/{scholarshipID}", handler.getScholarship)

	// University only
	router.Group(func(universityRoute chi.Router) {
		universityRoute.Use(middleware.RequireKind(sec.KindUniversity))

		universityRoute.Post("/", handler.createScholarship)
		universityRoute.Get("/mine", handler.listOwnScholarships)
		universityRoute.Delete("/{scholarshipID}", handler.deleteScholarship)
		universityRoute.Get("/{scholarshipID}/applications", handler.listScholarshipApplications)
	})

	// Student only
	router.Group(func(studentRoute chi.Router) {
		studentRoute.Use(middleware.RequireKind(sec.KindStudent))

		studentRoute.Post("/{scholarshipID}/applications", handler.apply)
		studentRoute.Get("/applications/mine", handler.listOwnApplications)
	})
}

func (handler *Handler) listScholarships(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	filter := Filter{
		Query: request.URL.Query().Get("q"),
	}

	scholarships, total, err := handler.service.ListScholarships(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, scholarships, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

func (handler *Handler) getScholarship(writer http.ResponseWriter, request *http.Request) {
	scholarship, err := handler.service.GetScholarship(request.Context(), requestutil.Param(request, "scholarshipID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, scholarship)
}

func (handler *Handler) listOwnScholarships(writer http.ResponseWriter, request *http.Request) {
	universityID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	paginationParams := pagination.FromRequest(request)
	scholarships, total, err := handler.service.ListOwnScholarships(request.Context(), universityID, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, scholarships, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

// createScholarship accepts a multipart form so the poster image can ride
// along with the posting fields.
func (handler *Handler) createScholarship(writer http.ResponseWriter, request *http.Request) {
	universityID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := request.ParseMultipartForm(maxSubmissionFormSize); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid multipart form"))
		return
	}

	input := CreateInput{
		Title:        request.FormValue(FieldTitle),
		Program:      request.FormValue(FieldProgram),
		Degree:       request.FormValue(FieldDegree),
		Language:     request.FormValue(FieldLanguage),
		Description:  request.FormValue(FieldDescription),
		Criteria:     request.FormValue(FieldCriteria),
		Requirements: request.FormValue(FieldRequirements),
		Start:        request.FormValue(FieldStart),
		End:          request.FormValue(FieldEnd),
	}

	if posters := request.MultipartForm.File[FieldPoster]; len(posters) > 0 {
		poster, err := readUpload(posters[0])
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		input.Poster = poster
	}

	scholarship, err := handler.service.CreateScholarship(request.Context(), universityID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, scholarship)
}

func (handler *Handler) deleteScholarship(writer http.ResponseWriter, request *http.Request) {
	universityID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteScholarship(request.Context(), universityID, requestutil.Param(request, "scholarshipID")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// apply accepts a multipart form: an "education" field carrying the history
// as a JSON array, plus "documents" file parts.
func (handler *Handler) apply(writer http.ResponseWriter, request *http.Request) {
	studentID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := request.ParseMultipartForm(maxSubmissionFormSize); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid multipart form"))
		return
	}

	var education []EducationEntry
	if raw := request.FormValue(FieldEducation); raw != "" {
		if err := json.Unmarshal([]byte(raw), &education); err != nil {
			respond.Error(writer, request, apperr.ValidationError("Invalid education history payload"))
			return
		}
	}

	input := ApplyInput{Education: education}
	for _, fileHeader := range request.MultipartForm.File[FieldDocuments] {
		upload, err := readUpload(fileHeader)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		input.Documents = append(input.Documents, *upload)
	}

	application, err := handler.service.Apply(request.Context(), studentID, requestutil.Param(request, "scholarshipID"), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, application)
}

func (handler *Handler) listOwnApplications(writer http.ResponseWriter, request *http.Request) {
	studentID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	paginationParams := pagination.FromRequest(request)
	applications, total, err := handler.service.ListOwnApplications(request.Context(), studentID, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, applications, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

func (handler *Handler) listScholarshipApplications(writer http.ResponseWriter, request *http.Request) {
	universityID, err := requestutil.RequiredPrincipalID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	paginationParams := pagination.FromRequest(request)
	applications, total, err := handler.service.ListScholarshipApplications(
		request.Context(),
		universityID,
		requestutil.Param(request, "scholarshipID"),
		paginationParams.Limit,
		paginationParams.Offset(),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, applications, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

// readUpload loads one multipart file fully into memory.
func readUpload(fileHeader *multipart.FileHeader) (*Upload, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, apperr.ValidationError("Unreadable file upload")
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.ValidationError("Unreadable file upload")
	}

	return &Upload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Blob:        blob,
	}, nil
}
