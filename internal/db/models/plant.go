package models

// Plant represents a production plant belonging to a company.
type Plant struct {
	ID         string
	CompanyID  string
	Name       string
	CapacityKW *float64
	Location   *string
	Auditable
}
