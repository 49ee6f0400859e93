package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a user in the system. Pairing is by email reference: a
// user whose PartnerEmail matches another account's Email is linked to that
// account. A user may list their own email and be paired with themselves.
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password     string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Nickname     string `gorm:"size:100" json:"nickname"`
	PartnerEmail string `gorm:"size:255" json:"partnerEmail"`

	// Relations (not always preloaded)
	RefreshTokens    []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	SentMessages     []Message      `gorm:"foreignKey:SenderID" json:"-"`
	ReceivedMessages []Message      `gorm:"foreignKey:ReceiverID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	PartnerEmail string    `json:"partnerEmail"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		PartnerEmail: u.PartnerEmail,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
