package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/worksledger/internal/models"
)

// Page size bounds accepted by GET /works.
const (
	minPageSize = 1
	maxPageSize = 1000
)

// WorksRequest is the request body for updating a record. It is also
// embedded in CreateWorksRequest.
type WorksRequest struct {
	ID        int    `json:"id" example:"1"`
	Title     string `json:"title" example:"Dune"`
	Author    string `json:"author" example:"Herbert"`
	Press     string `json:"press" example:"Ace"`
	Status    string `json:"status" example:"published"`
	PressDate string `json:"pressDate,omitempty" example:"1965-08-01"`
}

// Validate validates the request body.
func (r *WorksRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.PressDate, validation.Date(models.DateLayout)),
	)
}

// Works converts the request into a record. Validate must have passed.
func (r *WorksRequest) Works() (models.Works, error) {
	var date models.Date
	if r.PressDate != "" {
		d, err := models.ParseDate(r.PressDate)
		if err != nil {
			return models.Works{}, err
		}
		date = d
	}
	return models.NewWorks(r.ID, r.Title, r.Author, r.Press, r.Status, date), nil
}

// CreateWorksRequest is the request body for creating a record.
type CreateWorksRequest struct {
	Key string `json:"key" example:"w1" validate:"required"`
	WorksRequest
}

// Validate validates the request body.
func (r *CreateWorksRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Key, validation.Required),
	); err != nil {
		return err
	}
	return r.WorksRequest.Validate()
}

// ListWorksQuery holds the query parameters of GET /works. Author may be
// empty; it matches records stored with an empty author. A nil PageSize
// selects the unpaged listing.
type ListWorksQuery struct {
	Author   string `json:"author"`
	PageSize *int   `json:"pageSize"`
	Bookmark string `json:"bookmark"`
}

// Validate validates the query parameters.
func (q *ListWorksQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.PageSize,
			validation.When(q.Bookmark != "", validation.NotNil),
			validation.NilOrNotEmpty,
			validation.Min(minPageSize),
			validation.Max(maxPageSize),
		),
	)
}

// Paged reports whether the query asks for a single page.
func (q *ListWorksQuery) Paged() bool {
	return q.PageSize != nil
}

// WorksDetail is the record response type (aliased from the domain layer).
type WorksDetail = models.Works

// WorksListResponse wraps an unpaged listing.
type WorksListResponse = models.WorksQueryResultList

// WorksPageResponse wraps one page of a paged listing.
type WorksPageResponse = models.WorksQueryPageResult
