package fritzbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const ahaPath = "/webservices/homeautoswitch.lua"

// AHA switch commands.
const (
	cmdSwitchList   = "getswitchlist"
	cmdSwitchName   = "getswitchname"
	cmdSwitchState  = "getswitchstate"
	cmdSwitchOn     = "setswitchon"
	cmdSwitchOff    = "setswitchoff"
	cmdSwitchToggle = "setswitchtoggle"
)

// ErrUnexpectedReply indicates an AHA answer that does not match the command.
var ErrUnexpectedReply = errors.New("unexpected switch reply")

// Device is a switchable actor identified by its AIN.
type Device struct {
	AIN  string
	Name string
}

// SwitchState is the relay state of an actor.
type SwitchState int

const (
	// SwitchUnknown is reported for disconnected actors ("inval").
	SwitchUnknown SwitchState = iota
	SwitchOff
	SwitchOn
)

func (s SwitchState) String() string {
	switch s {
	case SwitchOn:
		return "on"
	case SwitchOff:
		return "off"
	default:
		return "unknown"
	}
}

// SwitchClient implements the homeautoswitch.lua endpoint family.
type SwitchClient struct {
	c *Client
}

// NewSwitchClient wraps a Client for AHA requests.
func NewSwitchClient(c *Client) *SwitchClient {
	return &SwitchClient{c: c}
}

// List returns every switch actor with its display name.
func (s *SwitchClient) List(ctx context.Context, sid string) ([]Device, error) {
	text, err := s.command(ctx, cmdSwitchList, sid, "")
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	ains := strings.Split(text, ",")
	devices := make([]Device, 0, len(ains))
	for _, ain := range ains {
		ain = strings.TrimSpace(ain)
		if ain == "" {
			continue
		}
		name, err := s.command(ctx, cmdSwitchName, sid, ain)
		if err != nil {
			return nil, err
		}
		devices = append(devices, Device{AIN: ain, Name: name})
	}
	return devices, nil
}

// State reads the relay state of one actor.
func (s *SwitchClient) State(ctx context.Context, sid, ain string) (SwitchState, error) {
	text, err := s.command(ctx, cmdSwitchState, sid, ain)
	if err != nil {
		return SwitchUnknown, err
	}
	return parseSwitchState(text)
}

// Set switches one actor on or off.
func (s *SwitchClient) Set(ctx context.Context, sid, ain string, on bool) error {
	cmd := cmdSwitchOff
	want := SwitchOff
	if on {
		cmd = cmdSwitchOn
		want = SwitchOn
	}

	text, err := s.command(ctx, cmd, sid, ain)
	if err != nil {
		return err
	}
	got, err := parseSwitchState(text)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %s reported %s", ErrUnexpectedReply, cmd, got)
	}
	return nil
}

// Toggle flips one actor and returns its new state.
func (s *SwitchClient) Toggle(ctx context.Context, sid, ain string) (SwitchState, error) {
	text, err := s.command(ctx, cmdSwitchToggle, sid, ain)
	if err != nil {
		return SwitchUnknown, err
	}
	return parseSwitchState(text)
}

func (s *SwitchClient) command(ctx context.Context, cmd, sid, ain string) (string, error) {
	query := url.Values{
		"switchcmd": {cmd},
		"sid":       {sid},
	}
	if ain != "" {
		query.Set("ain", NormalizeAIN(ain))
	}

	body, err := s.c.get(ctx, ahaPath, query)
	if err != nil {
		return "", fmt.Errorf("switch command %s: %w", cmd, err)
	}
	return strings.TrimSpace(string(body)), nil
}

// NormalizeAIN strips the blanks the box prints inside AINs ("08761 0000434").
func NormalizeAIN(ain string) string {
	return strings.ReplaceAll(strings.TrimSpace(ain), " ", "")
}

func parseSwitchState(text string) (SwitchState, error) {
	switch text {
	case "1":
		return SwitchOn, nil
	case "0":
		return SwitchOff, nil
	case "inval":
		return SwitchUnknown, nil
	default:
		return SwitchUnknown, fmt.Errorf("%w: %q", ErrUnexpectedReply, text)
	}
}
