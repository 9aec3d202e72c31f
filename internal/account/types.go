// Package account manages users, credentials, email verification and access tokens.
package account

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("user already exists")
)

// User is a registered account. Secrets never leave the process in JSON.
type User struct {
	ID               string    `json:"_id" bson:"_id"`
	Name             string    `json:"name" bson:"name"`
	Email            string    `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash     string    `json:"-" bson:"passwordHash,omitempty"`
	GoogleID         string    `json:"-" bson:"googleId,omitempty"`
	EmailVerified    bool      `json:"emailVerified" bson:"emailVerified"`
	VerifyToken      string    `json:"-" bson:"verifyToken,omitempty"`
	NextTokenRequest time.Time `json:"nextTokenRequest,omitzero" bson:"nextTokenRequest"`
	CreatedAt        time.Time `json:"date" bson:"createdAt"`
}

// Profile is the authenticated user's own view, with course memberships.
type Profile struct {
	User
	CoursesCreated  []string          `json:"coursesCreated"`
	CoursesEnrolled map[string]string `json:"coursesEnrolled"` // course id -> progress id
}

// AuthResult is returned by sign-in operations. Exactly one of Token or
// Inactive is set.
type AuthResult struct {
	Token            string     `json:"token,omitempty"`
	Inactive         bool       `json:"inactive,omitempty"`
	NextTokenRequest *time.Time `json:"nextTokenRequest,omitempty"`
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
