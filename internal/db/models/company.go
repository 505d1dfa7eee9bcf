// company.go defines the Company model, the tenant root most other business
// records hang off.
package models

// Company represents a customer company.
type Company struct {
	ID    string
	Code  string
	Name  string
	TaxID *string
	City  *string
	Auditable
}
