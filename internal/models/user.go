package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const RoleAdmin = "admin"

// SocialProfile names the provider that last authenticated the user.
type SocialProfile string

const (
	ProfileNone     SocialProfile = "NONE"
	ProfileFacebook SocialProfile = "FACEBOOK"
	ProfileTwitter  SocialProfile = "TWITTER"
	ProfileGoogle   SocialProfile = "GOOGLE"
)

// Valid reports whether p is one of the known profile variants.
func (p SocialProfile) Valid() bool {
	switch p {
	case ProfileNone, ProfileFacebook, ProfileTwitter, ProfileGoogle:
		return true
	}
	return false
}

// ProviderAccount is the provider specific part of a social login.
type ProviderAccount struct {
	ID    string `bson:"id" json:"-"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Image string `bson:"image,omitempty" json:"image,omitempty"`
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"-"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`

	Name        string     `bson:"name" json:"name"`
	Email       string     `bson:"email" json:"email"`
	Password    string     `bson:"password,omitempty" json:"-"` // never returned
	DateOfBirth *time.Time `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
	Phone       string     `bson:"phone,omitempty" json:"phone,omitempty"`
	Image       string     `bson:"image,omitempty" json:"image,omitempty"`
	Roles       []string   `bson:"roles" json:"roles"`

	Profile  SocialProfile    `bson:"profile" json:"profile"`
	Google   *ProviderAccount `bson:"google,omitempty" json:"-"`
	Facebook *ProviderAccount `bson:"facebook,omitempty" json:"-"`
	Twitter  *ProviderAccount `bson:"twitter,omitempty" json:"-"`

	ResetPasswordToken   string     `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpires *time.Time `bson:"reset_password_expires,omitempty" json:"-"`
}

// HasRole reports whether role is in the user's role set.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// Provider returns the account of the provider named by Profile, if any.
func (u *User) Provider() *ProviderAccount {
	switch u.Profile {
	case ProfileGoogle:
		return u.Google
	case ProfileFacebook:
		return u.Facebook
	case ProfileTwitter:
		return u.Twitter
	}
	return nil
}

// PublicUser is the client facing projection of a User. It has no password,
// reset token, revision counter or database identifier.
type PublicUser struct {
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	DateOfBirth *time.Time    `json:"dateOfBirth,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	Image       string        `json:"image,omitempty"`
	Roles       []string      `json:"roles"`
	Profile     SocialProfile `json:"profile"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ToPublic strips u down to its client facing fields. When a social provider
// authenticated the user its email and image take precedence.
func (u *User) ToPublic() PublicUser {
	p := PublicUser{
		Name:        u.Name,
		Email:       u.Email,
		DateOfBirth: u.DateOfBirth,
		Phone:       u.Phone,
		Image:       u.Image,
		Roles:       u.Roles,
		Profile:     u.Profile,
		UpdatedAt:   u.UpdatedAt,
	}
	if p.Roles == nil {
		p.Roles = []string{}
	}
	if p.Profile == "" {
		p.Profile = ProfileNone
	}
	if acct := u.Provider(); acct != nil {
		if acct.Email != "" {
			p.Email = acct.Email
		}
		if acct.Image != "" {
			p.Image = acct.Image
		}
	}
	return p
}

// AdminUser is the projection used by the user directory; it adds the id.
type AdminUser struct {
	ID string `json:"id"`
	PublicUser
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) ToAdmin() AdminUser {
	return AdminUser{ID: u.ID.Hex(), PublicUser: u.ToPublic(), CreatedAt: u.CreatedAt}
}
