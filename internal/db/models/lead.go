package models

// Lead funnel statuses.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusWon       = "won"
	LeadStatusLost      = "lost"
)

// Lead represents a sales lead in the acquisition funnel.
type Lead struct {
	ID          string
	CompanyName string
	ContactName string
	Email       *string
	Status      string
	Notes       *string
	Auditable
}
