package models

import "time"

// Activity events recorded by the auth and upload workflows.
const (
	EventSignup         = "signup"
	EventSignin         = "signin"
	EventSocialSignin   = "social_signin"
	EventSignout        = "signout"
	EventForgotPassword = "forgot_password"
	EventResetPassword  = "reset_password"
	EventUpload         = "upload"
	EventDeleteFiles    = "delete_files"
)

type ActivityEntry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Event     string    `json:"event"`
	Email     string    `json:"email,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
}
