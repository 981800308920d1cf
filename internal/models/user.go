package models

// User is the read-only projection of the identity table used for templating.
type User struct {
	ID       string `gorm:"primaryKey;size:64" json:"id"`
	Email    string `gorm:"size:255" json:"email"`
	FullName string `gorm:"size:255" json:"full_name"`
}

// TableName pins the identity table.
func (User) TableName() string {
	return "users"
}

// DisplayName returns the name used to greet the user in outbound messages.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return "there"
}
