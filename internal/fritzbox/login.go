package fritzbox

import (
	"context"
	"fmt"
	"net/url"
)

const loginPath = "/login_sid.lua"

// loginQuery selects the PBKDF2 challenge format.
var loginQuery = url.Values{"version": {"2"}}

// LoginClient implements the login_sid.lua endpoint family.
type LoginClient struct {
	c *Client
}

// NewLoginClient wraps a Client for session requests.
func NewLoginClient(c *Client) *LoginClient {
	return &LoginClient{c: c}
}

// SessionInfo fetches the current challenge and user list without credentials.
func (l *LoginClient) SessionInfo(ctx context.Context) (*SessionInfo, error) {
	body, err := l.c.get(ctx, loginPath, loginQuery)
	if err != nil {
		return nil, fmt.Errorf("fetch session info: %w", err)
	}
	return ParseSessionInfo(body)
}

// LoginWithSID asks the box whether sid is still a valid session.
func (l *LoginClient) LoginWithSID(ctx context.Context, sid string) (*SessionInfo, error) {
	return l.post(ctx, "sid="+url.QueryEscape(sid))
}

// LoginWithResponse submits a challenge response computed by auth.ChallengeResponse.
// The response already carries its "%24" separator and is sent unescaped.
func (l *LoginClient) LoginWithResponse(ctx context.Context, username, response string) (*SessionInfo, error) {
	return l.post(ctx, "username="+url.QueryEscape(username)+"&response="+response)
}

// Logout ends the session identified by sid.
func (l *LoginClient) Logout(ctx context.Context, sid string) (*SessionInfo, error) {
	return l.post(ctx, "logout=1&sid="+url.QueryEscape(sid))
}

func (l *LoginClient) post(ctx context.Context, body string) (*SessionInfo, error) {
	raw, err := l.c.postForm(ctx, loginPath, loginQuery, body)
	if err != nil {
		return nil, fmt.Errorf("post login: %w", err)
	}
	return ParseSessionInfo(raw)
}
