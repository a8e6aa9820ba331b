package authstate

import "github.com/jrsteele09/go-property-auth/users"

// Event is a state transition. The set is closed: only the types in this file implement it.
type Event interface {
	isEvent()
}

// Initialize is fired once at start-up with what the auth service reports.
type Initialize struct {
	User          *users.User
	Authenticated bool
}

type LoginStart struct{}

type LoginSuccess struct {
	User *users.User
}

type LoginFailure struct {
	Message string
}

type RegisterStart struct{}

type RegisterSuccess struct {
	User *users.User
}

type RegisterFailure struct {
	Message string
}

// Logout resets to the anonymous state. It is dispatched even when the server call failed.
type Logout struct{}

type UpdateUser struct {
	User *users.User
}

type SetError struct {
	Message string
}

type ClearError struct{}

func (Initialize) isEvent()      {}
func (LoginStart) isEvent()      {}
func (LoginSuccess) isEvent()    {}
func (LoginFailure) isEvent()    {}
func (RegisterStart) isEvent()   {}
func (RegisterSuccess) isEvent() {}
func (RegisterFailure) isEvent() {}
func (Logout) isEvent()          {}
func (UpdateUser) isEvent()      {}
func (SetError) isEvent()        {}
func (ClearError) isEvent()      {}
