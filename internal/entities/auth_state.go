package entities

// AuthState is the frontend's view of who is signed in.
//
// LoggedIn implies User != nil. Token is only populated in bearer token mode,
// and "" stands for an absent token.
type AuthState struct {
	User     User   `json:"user"`
	LoggedIn bool   `json:"loggedIn"`
	Token    string `json:"token,omitempty"`
}

// NewAuthState returns the state of a visitor nobody has signed in as yet.
func NewAuthState() AuthState {
	return AuthState{}
}

// Reset clears every field, as logout does.
func (s *AuthState) Reset() {
	s.User = nil
	s.LoggedIn = false
	s.Token = ""
}

// SetUser records a successfully fetched profile. A nil profile never marks the
// state as logged in.
func (s *AuthState) SetUser(u User) {
	if u == nil {
		return
	}
	s.User = u
	s.LoggedIn = true
}

// IsVerified reports whether the signed in user has confirmed their email.
func (s AuthState) IsVerified() bool {
	return s.LoggedIn && s.User.IsVerified()
}
