package model

import "time"

type Credential struct {
	Username string
	Password string
}

// Session carries the bearer token for one suite run. It is built once after
// authentication and handed to every probe explicitly.
type Session struct {
	Token     string
	RunID     string
	FetchedAt time.Time
}

func (s Session) AuthorizationHeader() string {
	return "Bearer " + s.Token
}
