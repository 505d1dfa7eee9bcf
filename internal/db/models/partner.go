package models

// Partner represents an external business partner.
type Partner struct {
	ID           string
	Name         string
	ContactEmail *string
	Phone        *string
	Auditable
}
