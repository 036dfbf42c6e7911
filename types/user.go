package types

import "time"

// Role is a user's authorization level.
type Role string

const (
	RoleNone      Role = "none"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, and subscription metadata.
type User struct {
	// Email is the unique identifying key of the user.
	Email string `json:"email" db:"email" bson:"_id"`

	// Name is the user's display name.
	Name string `json:"name" db:"name" bson:"name"`

	// Photo is the URL of the user's avatar.
	Photo string `json:"photo" db:"photo" bson:"photo"`

	// Role indicates the user's authorization level. Only an admin changes it.
	Role Role `json:"role" db:"role" bson:"role"`

	// PasswordHash is the bcrypt hash of the user's password. Never serialized.
	PasswordHash string `json:"-" db:"password_hash" bson:"passwordHash"`

	// Subscribed is set once the user has completed a payment.
	Subscribed bool `json:"subscribed" db:"subscribed" bson:"subscribed"`

	// CreatedAt is the timestamp when the user was first registered.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
}
