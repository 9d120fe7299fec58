package entity

type ActivityStatus string

const (
	ActivityStatusOnline  ActivityStatus = "online"
	ActivityStatusOffline ActivityStatus = "offline"
)

// UserActivity is the administrative projection of one known user: identity
// fields plus presence. Derived on demand, never a source of truth.
type UserActivity struct {
	Id         string
	Name       string
	Email      string
	Provider   UserProvider
	IsAdmin    bool
	LastActive int64
	Status     ActivityStatus
}
