package authstate

import "github.com/jrsteele09/go-property-auth/users"

// State is the application-wide view of the session.
type State struct {
	User            *users.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// InitialState is the state before Initialize has run.
func InitialState() State {
	return State{IsLoading: true}
}

func (s State) Authenticated() bool {
	return s.IsAuthenticated
}

func (s State) HasRole(role users.RoleType) bool {
	return s.User.HasRole(role)
}

func (s State) HasAnyRole(roles ...users.RoleType) bool {
	return s.User.HasAnyRole(roles...)
}

// Reduce applies e to s. It is the only way a State changes.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case Initialize:
		authenticated := e.Authenticated && e.User != nil
		user := e.User
		if !authenticated {
			user = nil
		}
		return State{User: user.Clone(), IsAuthenticated: authenticated, IsLoading: false, Error: s.Error}
	case LoginStart, RegisterStart:
		s.IsLoading = true
		s.Error = ""
		return s
	case LoginSuccess:
		return State{User: e.User.Clone(), IsAuthenticated: true}
	case RegisterSuccess:
		return State{User: e.User.Clone(), IsAuthenticated: true}
	case LoginFailure:
		return State{Error: e.Message}
	case RegisterFailure:
		return State{Error: e.Message}
	case Logout:
		return State{}
	case UpdateUser:
		if e.User != nil {
			s.User = e.User.Clone()
		}
		s.Error = ""
		return s
	case SetError:
		s.Error = e.Message
		return s
	case ClearError:
		s.Error = ""
		return s
	default:
		return s
	}
}
