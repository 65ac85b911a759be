package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/fritzer/auth"
	"github.com/Hussein-Mazeh/fritzer/internal/fritzbox"
	"github.com/Hussein-Mazeh/fritzer/internal/logger"
	"github.com/Hussein-Mazeh/fritzer/store"
)

const (
	probeChallenge  = "2$60000$c5b7ff41801c5f877d307bbdc93188ef$6000$d19cee81917f97da37430f45b8352db0"
	rejectChallenge = "2$10000$aabbccdd$1000$eeff0011"
	gatewayPassword = "my$uper$trongPa$$w0rd4U"
	validSID        = "a1b2c3d4e5f60718"
	cachedSID       = "ffffeeeeddddcccc"
)

type stubLogin struct{ mock.Mock }

func (m *stubLogin) SessionInfo(ctx context.Context) (*fritzbox.SessionInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*fritzbox.SessionInfo)
	return info, args.Error(1)
}

func (m *stubLogin) LoginWithSID(ctx context.Context, sid string) (*fritzbox.SessionInfo, error) {
	args := m.Called(ctx, sid)
	info, _ := args.Get(0).(*fritzbox.SessionInfo)
	return info, args.Error(1)
}

func (m *stubLogin) LoginWithResponse(ctx context.Context, username, response string) (*fritzbox.SessionInfo, error) {
	args := m.Called(ctx, username, response)
	info, _ := args.Get(0).(*fritzbox.SessionInfo)
	return info, args.Error(1)
}

func (m *stubLogin) Logout(ctx context.Context, sid string) (*fritzbox.SessionInfo, error) {
	args := m.Called(ctx, sid)
	info, _ := args.Get(0).(*fritzbox.SessionInfo)
	return info, args.Error(1)
}

type stubStore struct{ mock.Mock }

func (m *stubStore) Load(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *stubStore) Save(ctx context.Context, sid string) error {
	return m.Called(ctx, sid).Error(0)
}

func (m *stubStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type stubSwitches struct{ mock.Mock }

func (m *stubSwitches) List(ctx context.Context, sid string) ([]fritzbox.Device, error) {
	args := m.Called(ctx, sid)
	devs, _ := args.Get(0).([]fritzbox.Device)
	return devs, args.Error(1)
}

func (m *stubSwitches) State(ctx context.Context, sid, ain string) (fritzbox.SwitchState, error) {
	args := m.Called(ctx, sid, ain)
	return args.Get(0).(fritzbox.SwitchState), args.Error(1)
}

func (m *stubSwitches) Set(ctx context.Context, sid, ain string, on bool) error {
	return m.Called(ctx, sid, ain, on).Error(0)
}

func (m *stubSwitches) Toggle(ctx context.Context, sid, ain string) (fritzbox.SwitchState, error) {
	args := m.Called(ctx, sid, ain)
	return args.Get(0).(fritzbox.SwitchState), args.Error(1)
}

// staticCredentials counts password lookups.
type staticCredentials struct {
	user     string
	password string
	err      error
	calls    int
}

func (c *staticCredentials) Username() string { return c.user }

func (c *staticCredentials) Password(context.Context) (string, error) {
	c.calls++
	return c.password, c.err
}

// recordingResponder remembers every challenge it derived from.
type recordingResponder struct {
	challenges []auth.Challenge
}

func (r *recordingResponder) derive(ch auth.Challenge, password string) string {
	r.challenges = append(r.challenges, ch)
	return auth.ChallengeResponse(ch, password)
}

func probeRecord(users ...fritzbox.User) *fritzbox.SessionInfo {
	return &fritzbox.SessionInfo{SID: fritzbox.InvalidSID, Challenge: probeChallenge, Users: users}
}

func authed(sid string) *fritzbox.SessionInfo {
	return &fritzbox.SessionInfo{SID: sid}
}

var anyArg = mock.Anything

func TestIsConnected(t *testing.T) {
	s := New(new(stubLogin), WithLogger(logger.Discard()))
	assert.False(t, s.IsConnected(), "no record yet")
	assert.Nil(t, s.Record())
	assert.Equal(t, Unauthenticated, s.State())

	s.record = &fritzbox.SessionInfo{SID: fritzbox.InvalidSID}
	assert.False(t, s.IsConnected(), "sentinel")

	s.record = &fritzbox.SessionInfo{SID: ""}
	assert.False(t, s.IsConnected(), "empty sid")

	s.record = &fritzbox.SessionInfo{SID: validSID}
	assert.True(t, s.IsConnected())
	assert.Equal(t, validSID, s.SID())
}

func TestConnectCachedSIDAccepted(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()
	login.On("LoginWithSID", anyArg, cachedSID).Return(authed(cachedSID), nil).Once()

	st := new(stubStore)
	st.On("Load", anyArg).Return(cachedSID, nil).Once()

	resp := &recordingResponder{}
	creds := &staticCredentials{user: "admin", password: gatewayPassword}

	s := New(login,
		WithStore(st),
		WithCredentials(creds),
		WithResponder(resp.derive),
		WithLogger(logger.Discard()),
	)
	require.NoError(t, s.Connect(context.Background()))

	assert.True(t, s.IsConnected())
	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, MethodCachedSID, s.Method())
	assert.Equal(t, cachedSID, s.SID())
	assert.Empty(t, resp.challenges, "responder must not run")
	assert.Zero(t, creds.calls, "password must not be read")

	login.AssertNotCalled(t, "LoginWithResponse", anyArg, anyArg, anyArg)
	st.AssertNotCalled(t, "Save", anyArg, anyArg)
	login.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestConnectCachedSIDRejectedUsesLatestChallenge(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()
	rejected := &fritzbox.SessionInfo{
		SID:       fritzbox.InvalidSID,
		Challenge: rejectChallenge,
		Users:     []fritzbox.User{{Name: "fritz1234", Last: true}},
	}
	login.On("LoginWithSID", anyArg, cachedSID).Return(rejected, nil).Once()

	latest, err := auth.ParseChallenge(rejectChallenge)
	require.NoError(t, err)
	wantResponse := auth.ChallengeResponse(latest, gatewayPassword)
	login.On("LoginWithResponse", anyArg, "fritz1234", wantResponse).Return(authed(validSID), nil).Once()

	st := new(stubStore)
	st.On("Load", anyArg).Return(cachedSID, nil).Once()
	st.On("Save", anyArg, validSID).Return(nil).Once()

	resp := &recordingResponder{}
	s := New(login,
		WithStore(st),
		WithCredentials(&staticCredentials{user: "ignored", password: gatewayPassword}),
		WithResponder(resp.derive),
		WithLogger(logger.Discard()),
	)
	require.NoError(t, s.Connect(context.Background()))

	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, MethodCredentials, s.Method())
	assert.Equal(t, validSID, s.SID())
	require.Len(t, resp.challenges, 1, "exactly one credential attempt")
	assert.Equal(t, latest, resp.challenges[0])

	login.AssertNumberOfCalls(t, "LoginWithResponse", 1)
	login.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestConnectCachedSIDErrorFallsBack(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()
	login.On("LoginWithSID", anyArg, cachedSID).Return(nil, errors.New("connection reset")).Once()
	login.On("LoginWithResponse", anyArg, "admin", anyArg).Return(authed(validSID), nil).Once()

	st := new(stubStore)
	st.On("Load", anyArg).Return(cachedSID, nil).Once()
	st.On("Save", anyArg, validSID).Return(nil).Once()

	resp := &recordingResponder{}
	s := New(login,
		WithStore(st),
		WithCredentials(&staticCredentials{user: "admin", password: gatewayPassword}),
		WithResponder(resp.derive),
		WithLogger(logger.Discard()),
	)
	require.NoError(t, s.Connect(context.Background()))

	require.Len(t, resp.challenges, 1)
	probe, err := auth.ParseChallenge(probeChallenge)
	require.NoError(t, err)
	assert.Equal(t, probe, resp.challenges[0], "probe record stays current after a failed exchange")
	login.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestConnectWithoutCacheUsesProbeChallenge(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()
	login.On("LoginWithResponse", anyArg, "admin",
		"d19cee81917f97da37430f45b8352db0%24506cf2017a1f3ff399bd66d750979ebdb0cc22fbdaa134acf2ad26c71df6c20f",
	).Return(authed(validSID), nil).Once()

	st := new(stubStore)
	st.On("Load", anyArg).Return("", store.ErrNotFound).Once()
	st.On("Save", anyArg, validSID).Return(nil).Once()

	s := New(login,
		WithStore(st),
		WithCredentials(&staticCredentials{user: "admin", password: gatewayPassword}),
		WithLogger(logger.Discard()),
	)
	require.NoError(t, s.Connect(context.Background()))

	assert.True(t, s.IsConnected())
	login.AssertNotCalled(t, "LoginWithSID", anyArg, anyArg)
	login.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestConnectProbeFailure(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(nil, errors.New("dial tcp: no route to host")).Once()

	st := new(stubStore)
	s := New(login, WithStore(st), WithLogger(logger.Discard()))

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, ErrConnectivity)
	assert.Equal(t, Failed, s.State())
	assert.False(t, s.IsConnected())
	st.AssertNotCalled(t, "Load", anyArg)
}

func TestConnectCredentialTransportFailure(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()
	login.On("LoginWithResponse", anyArg, "admin", anyArg).Return(nil, context.DeadlineExceeded).Once()

	s := New(login,
		WithCredentials(&staticCredentials{user: "admin", password: gatewayPassword}),
		WithLogger(logger.Discard()),
	)
	err := s.Connect(context.Background())
	require.ErrorIs(t, err, ErrConnectivity)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Failed, s.State())
}

func TestConnectMalformedChallengeFailsBeforeCredentialCall(t *testing.T) {
	cases := []struct {
		name      string
		challenge string
		want      error
	}{
		{"too few fields", "2$60000$c5b7ff41$6000", auth.ErrMalformedChallenge},
		{"non-hex salt", "2$60000$zz$6000$d19cee81", auth.ErrMalformedChallenge},
		{"legacy", "1234567z", auth.ErrMalformedChallenge},
		{"version", "3$60000$c5b7ff41$6000$d19cee81", auth.ErrUnsupportedProtocolVersion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			login := new(stubLogin)
			login.On("SessionInfo", anyArg).Return(&fritzbox.SessionInfo{
				SID:       fritzbox.InvalidSID,
				Challenge: tc.challenge,
			}, nil).Once()

			creds := &staticCredentials{user: "admin", password: gatewayPassword}
			resp := &recordingResponder{}
			s := New(login, WithCredentials(creds), WithResponder(resp.derive), WithLogger(logger.Discard()))

			err := s.Connect(context.Background())
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, Failed, s.State())
			assert.Empty(t, resp.challenges)
			assert.Zero(t, creds.calls)
			login.AssertNotCalled(t, "LoginWithResponse", anyArg, anyArg, anyArg)
		})
	}
}

func TestConnectInvalidCredentials(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()
	login.On("LoginWithResponse", anyArg, "admin", anyArg).Return(&fritzbox.SessionInfo{
		SID:       fritzbox.InvalidSID,
		Challenge: rejectChallenge,
		BlockTime: 8,
	}, nil).Once()

	st := new(stubStore)
	st.On("Load", anyArg).Return("", store.ErrNotFound).Once()

	s := New(login,
		WithStore(st),
		WithCredentials(&staticCredentials{user: "admin", password: "wrong"}),
		WithLogger(logger.Discard()),
	)
	err := s.Connect(context.Background())
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, Failed, s.State())
	assert.False(t, s.IsConnected())
	assert.Equal(t, 8, s.Record().BlockTime)
	login.AssertNumberOfCalls(t, "LoginWithResponse", 1)
	st.AssertNotCalled(t, "Save", anyArg, anyArg)
}

func TestConnectUsernameResolution(t *testing.T) {
	t.Run("first flagged user wins", func(t *testing.T) {
		login := new(stubLogin)
		login.On("SessionInfo", anyArg).Return(probeRecord(
			fritzbox.User{Name: "guest"},
			fritzbox.User{Name: "first", Last: true},
			fritzbox.User{Name: "second", Last: true},
		), nil).Once()
		login.On("LoginWithResponse", anyArg, "first", anyArg).Return(authed(validSID), nil).Once()

		s := New(login,
			WithCredentials(&staticCredentials{user: "cli-user", password: gatewayPassword}),
			WithLogger(logger.Discard()),
		)
		require.NoError(t, s.Connect(context.Background()))
		login.AssertExpectations(t)
	})

	t.Run("falls back to supplied username", func(t *testing.T) {
		login := new(stubLogin)
		login.On("SessionInfo", anyArg).Return(probeRecord(fritzbox.User{Name: "guest"}), nil).Once()
		login.On("LoginWithResponse", anyArg, "cli-user", anyArg).Return(authed(validSID), nil).Once()

		s := New(login,
			WithCredentials(&staticCredentials{user: "cli-user", password: gatewayPassword}),
			WithLogger(logger.Discard()),
		)
		require.NoError(t, s.Connect(context.Background()))
		login.AssertExpectations(t)
	})

	t.Run("no username anywhere", func(t *testing.T) {
		login := new(stubLogin)
		login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()

		creds := &staticCredentials{password: gatewayPassword}
		s := New(login, WithCredentials(creds), WithLogger(logger.Discard()))

		err := s.Connect(context.Background())
		require.ErrorIs(t, err, ErrUsernameRequired)
		assert.Equal(t, Failed, s.State())
		assert.Zero(t, creds.calls)
		login.AssertNotCalled(t, "LoginWithResponse", anyArg, anyArg, anyArg)
	})
}

func TestConnectPasswordErrors(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(fritzbox.User{Name: "admin", Last: true}), nil)

	s := New(login, WithLogger(logger.Discard()))
	require.ErrorIs(t, s.Connect(context.Background()), ErrPasswordRequired)

	boom := errors.New("tty closed")
	s = New(login, WithCredentials(&staticCredentials{err: boom}), WithLogger(logger.Discard()))
	require.ErrorIs(t, s.Connect(context.Background()), boom)
	login.AssertNotCalled(t, "LoginWithResponse", anyArg, anyArg, anyArg)
}

func TestConnectStoreFailuresAreNotFatal(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()
	login.On("LoginWithResponse", anyArg, "admin", anyArg).Return(authed(validSID), nil).Once()

	st := new(stubStore)
	st.On("Load", anyArg).Return("", errors.New("permission denied")).Once()
	st.On("Save", anyArg, validSID).Return(errors.New("disk full")).Once()

	s := New(login,
		WithStore(st),
		WithCredentials(&staticCredentials{user: "admin", password: gatewayPassword}),
		WithLogger(logger.Discard()),
	)
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, Authenticated, s.State())
	assert.True(t, s.IsConnected())
	st.AssertExpectations(t)
}

func TestLogout(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(), nil).Once()
	login.On("LoginWithSID", anyArg, cachedSID).Return(authed(cachedSID), nil).Once()
	login.On("Logout", anyArg, cachedSID).Return(&fritzbox.SessionInfo{SID: fritzbox.InvalidSID}, nil).Once()

	st := new(stubStore)
	st.On("Load", anyArg).Return(cachedSID, nil).Once()
	st.On("Clear", anyArg).Return(nil).Once()

	s := New(login, WithStore(st), WithLogger(logger.Discard()))
	require.ErrorIs(t, s.Logout(context.Background()), ErrNotConnected)

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.IsConnected())
	assert.Equal(t, Unauthenticated, s.State())
	login.AssertExpectations(t)
	st.AssertExpectations(t)
}

func TestSwitchHelpers(t *testing.T) {
	sw := new(stubSwitches)
	s := New(new(stubLogin), WithSwitches(sw), WithLogger(logger.Discard()))

	_, err := s.Switches(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
	_, err = s.SwitchState(context.Background(), "087610000434")
	require.ErrorIs(t, err, ErrNotConnected)
	require.ErrorIs(t, s.SetSwitch(context.Background(), "087610000434", true), ErrNotConnected)
	_, err = s.ToggleSwitch(context.Background(), "087610000434")
	require.ErrorIs(t, err, ErrNotConnected)
	sw.AssertNotCalled(t, "List", anyArg, anyArg)

	s.record = authed(validSID)
	sw.On("List", anyArg, validSID).Return([]fritzbox.Device{{AIN: "087610000434", Name: "Lamp"}}, nil).Once()
	sw.On("State", anyArg, validSID, "087610000434").Return(fritzbox.SwitchOff, nil).Once()
	sw.On("Set", anyArg, validSID, "087610000434", true).Return(nil).Once()
	sw.On("Toggle", anyArg, validSID, "087610000434").Return(fritzbox.SwitchOff, nil).Once()

	devs, err := s.Switches(context.Background())
	require.NoError(t, err)
	assert.Len(t, devs, 1)

	state, err := s.SwitchState(context.Background(), "087610000434")
	require.NoError(t, err)
	assert.Equal(t, fritzbox.SwitchOff, state)

	require.NoError(t, s.SetSwitch(context.Background(), "087610000434", true))

	state, err = s.ToggleSwitch(context.Background(), "087610000434")
	require.NoError(t, err)
	assert.Equal(t, fritzbox.SwitchOff, state)
	sw.AssertExpectations(t)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "cached-token-rejected", CachedTokenRejected.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "cached session", MethodCachedSID.String())
}

func TestResumeNeverUsesCredentials(t *testing.T) {
	login := new(stubLogin)
	login.On("SessionInfo", anyArg).Return(probeRecord(fritzbox.User{Name: "admin", Last: true}), nil)
	login.On("LoginWithSID", anyArg, cachedSID).Return(probeRecord(), nil).Once()

	st := new(stubStore)
	st.On("Load", anyArg).Return(cachedSID, nil).Once()
	st.On("Load", anyArg).Return("", store.ErrNotFound).Once()

	creds := &staticCredentials{password: gatewayPassword}
	s := New(login, WithStore(st), WithCredentials(creds), WithLogger(logger.Discard()))

	require.ErrorIs(t, s.Resume(context.Background()), ErrNotConnected, "rejected cache")
	require.ErrorIs(t, s.Resume(context.Background()), ErrNotConnected, "empty cache")
	assert.Zero(t, creds.calls)
	login.AssertNotCalled(t, "LoginWithResponse", anyArg, anyArg, anyArg)
	st.AssertExpectations(t)
}
