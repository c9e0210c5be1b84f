package storedsafe

// Session is one valid (server, token) pair. It is immutable: a token
// refresh produces a brand-new Session, never patches an existing one. At
// most one Session is current within a single invocation.
type Session struct {
	Server string
	Token  string
}

// NewSession builds a Session from a server address and token.
func NewSession(server, token string) Session {
	return Session{Server: server, Token: token}
}

// BaseURL returns the REST base URL derived from the server address.
func (s Session) BaseURL() string {
	return "https://" + s.Server + APIBasePath
}
