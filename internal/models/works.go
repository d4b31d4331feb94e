// Package models defines the domain types for the works ledger.
package models

// Works is a bibliographic work record as stored in the ledger.
//
// The ledger key a record lives under and its ID field are independent.
type Works struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Press     string `json:"press"`
	Status    string `json:"status"`
	PressDate Date   `json:"pressDate"`
}

// NewWorks builds a Works value from its fields.
func NewWorks(id int, title, author, press, status string, pressDate Date) Works {
	return Works{
		ID:        id,
		Title:     title,
		Author:    author,
		Press:     press,
		Status:    status,
		PressDate: pressDate,
	}
}

// WorksQueryResult pairs a ledger key with the record stored under it.
type WorksQueryResult struct {
	Key   string `json:"key"`
	Works Works  `json:"works"`
}

// WorksQueryResultList is the result of an unpaged query.
type WorksQueryResultList struct {
	Works []WorksQueryResult `json:"works"`
}

// WorksQueryPageResult is one page of a paginated query.
type WorksQueryPageResult struct {
	Works               []WorksQueryResult `json:"works"`
	Bookmark            string             `json:"bookmark"`
	FetchedRecordsCount int32              `json:"fetchedRecordsCount"`
}
