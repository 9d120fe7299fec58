package entity

type UserProvider string

const (
	UserProviderEmail  UserProvider = "email"
	UserProviderGoogle UserProvider = "google"
	UserProviderApple  UserProvider = "apple"
	UserProviderGuest  UserProvider = "guest"

	// GuestEmail is the sentinel email carried by anonymous users.
	GuestEmail = "guest"
)

// User is the identity issued by the authentication collaborator.
// Immutable for the lifetime of a login.
type User struct {
	Id        string
	Name      string
	Email     string
	AvatarURL string
	Provider  UserProvider
	IsAdmin   bool
}

func (u *User) IsGuest() bool {
	return u.Provider == UserProviderGuest || u.Email == GuestEmail
}
