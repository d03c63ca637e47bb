package models

// Role defines what a user may do in the back-office.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

// User represents an account. Agents and clients hang off a user row.
type User struct {
	Base
	Name  string `gorm:"size:255;not null" json:"name"`
	Email string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone string `gorm:"size:50" json:"phone"`
	Role  Role   `gorm:"size:20;not null;default:'client'" json:"role"`
}

// Agent is a brokerage employee who owns listings and takes appointments.
type Agent struct {
	Base
	UserID    uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	Specialty string `gorm:"size:100" json:"specialty"`
	User      *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Client is a customer who books viewings.
type Client struct {
	Base
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Winner is the public contact profile of an auction winner.
type Winner struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// WinnerFromUser projects a user row onto the winner profile.
func WinnerFromUser(u User) *Winner {
	return &Winner{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}
