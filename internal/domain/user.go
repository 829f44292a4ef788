package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UnknownName = "Unknown"

// User represents an account holder.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Age          *int               `bson:"age,omitempty" json:"age,omitempty"`
	Weight       *float64           `bson:"weight,omitempty" json:"weight,omitempty"` // Kilograms
	Height       *float64           `bson:"height,omitempty" json:"height,omitempty"` // Centimeters
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Password reset, single use. Only the bcrypt hash of the token is stored.
	ResetTokenHash  string     `bson:"resetTokenHash,omitempty" json:"-"`
	ResetTokenUntil *time.Time `bson:"resetTokenUntil,omitempty" json:"-"`
}

// DisplayName returns the name or a fallback for documents missing it.
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return UnknownName
	}
	return u.Name
}

// ProfileUpdate holds the optional body measurements a user may change.
type ProfileUpdate struct {
	Name   *string
	Age    *int
	Weight *float64
	Height *float64
}

// IsEmpty reports whether the update carries no field.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.Weight == nil && p.Height == nil
}
