package models

// FirstInvoiceSequence is the sequence of the first invoice issued in a calendar year.
const FirstInvoiceSequence = 1001

// DefaultInvoicePrefix prefixes serials when the company config names none.
const DefaultInvoicePrefix = "TE"

// CompanyConfig describes the issuing business.
type CompanyConfig struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	GSTIN           string `json:"gstin"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Tagline         string `json:"tagline"`
	StateCode       string `json:"stateCode"`
	SharedDriveID   string `json:"sharedDriveId,omitempty"`
	InvoiceSequence int    `json:"invoiceSequence"` // Next serial suffix, written by the order manager only
	InvoicePrefix   string `json:"invoicePrefix,omitempty"`
}

// Role is a user's permission level.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Elevated reports whether the role may delete invoices and revert purchases.
func (r Role) Elevated() bool {
	return r == RoleAdmin
}

// User is a staff account. Password is stored in clear locally and obfuscated remotely.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Enabled   bool   `json:"enabled"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}
