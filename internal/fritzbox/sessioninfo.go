package fritzbox

import (
	"encoding/xml"
	"fmt"
)

// InvalidSID is the SID the box reports for an unauthenticated session.
const InvalidSID = "0000000000000000"

// SessionInfo is the document returned by every login_sid.lua exchange.
type SessionInfo struct {
	XMLName   xml.Name `xml:"SessionInfo"`
	SID       string   `xml:"SID"`
	Challenge string   `xml:"Challenge"`
	// BlockTime is the number of seconds the box refuses further login attempts
	// after failed ones.
	BlockTime int    `xml:"BlockTime"`
	Users     []User `xml:"Users>User"`
}

// User is one account listed on the login page.
type User struct {
	Name string `xml:",chardata"`
	// Last marks the user who logged in most recently.
	Last bool `xml:"last,attr"`
}

// Authenticated reports whether the SID is a real session.
func (s *SessionInfo) Authenticated() bool {
	return s != nil && s.SID != "" && s.SID != InvalidSID
}

// LastUser returns the first user flagged as last logged in.
func (s *SessionInfo) LastUser() (string, bool) {
	if s == nil {
		return "", false
	}
	for _, u := range s.Users {
		if u.Last && u.Name != "" {
			return u.Name, true
		}
	}
	return "", false
}

// ParseSessionInfo decodes a login_sid.lua response body.
func ParseSessionInfo(body []byte) (*SessionInfo, error) {
	var info SessionInfo
	if err := xml.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode session info: %w", err)
	}
	return &info, nil
}
