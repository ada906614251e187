package account

import "time"

// RoleDefault is assigned to every account created through signup or OAuth.
const RoleDefault = "default"

// Account is the durable identity record. Email and Mobile are optional but
// never both absent; the identifier is assigned by the store at creation and
// immutable afterwards.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	Mobile       string    `json:"mobileNumber,omitempty"`
	PasswordHash string    `json:"password,omitempty"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// PreferredContact returns the contact the OTP should go to, mobile first.
func (a Account) PreferredContact() (contact, kind string) {
	if a.Mobile != "" {
		return a.Mobile, ContactMobile
	}
	if a.Email != "" {
		return a.Email, ContactEmail
	}
	return "", ""
}

// Contact kinds understood by the delivery channel.
const (
	ContactEmail  = "EMAIL"
	ContactMobile = "MOBILE"
)
