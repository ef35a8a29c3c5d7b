package models

// User represents an authenticated customer.
type User struct {
	BaseModel
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `gorm:"uniqueIndex" json:"email"`
	Ref          string  `gorm:"uniqueIndex" json:"ref"`
	PasswordHash string  `json:"-"`
	Orders       []Order `json:"orders,omitempty"`
}
