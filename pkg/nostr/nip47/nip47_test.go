package nip47

import (
	"encoding/json"
	"testing"

	"github.com/silex-im/silex/pkg/nostr/eventid"
	"github.com/silex-im/silex/pkg/nostr/kind"
	"github.com/stretchr/testify/require"
)

const (
	testWalletPub = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testSecret    = "fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210"
)

func TestSelectEncryption(t *testing.T) {
	scheme, err := SelectEncryption(
		[]string{"nip44-v2", "nip04"}, []string{"nip04", "nip44-v2"})
	require.NoError(t, err)
	require.Equal(t, EncryptionNIP44v2, scheme)

	scheme, err = SelectEncryption([]string{"nip04"}, []string{"nip04"})
	require.NoError(t, err)
	require.Equal(t, EncryptionNIP04, scheme)

	_, err = SelectEncryption([]string{"nip44-v2"}, []string{"nip04"})
	require.ErrorIs(t, err, ErrNoEncryption)
}

func TestSelectEncryptionSymmetric(t *testing.T) {
	lists := [][]string{
		{"nip44-v2"},
		{"nip04"},
		{"nip44-v2", "nip04"},
		{},
	}
	for _, a := range lists {
		for _, b := range lists {
			sAB, errAB := SelectEncryption(a, b)
			sBA, errBA := SelectEncryption(b, a)
			require.Equal(t, sAB, sBA)
			require.Equal(t, errAB == nil, errBA == nil)
		}
	}
}

func TestSessionsFailClosed(t *testing.T) {
	s, err := NewClientSession(testWalletPub,
		[]string{"nip44-v2", "nip04"}, []string{"nip44-v2"})
	require.NoError(t, err)
	require.Equal(t, testWalletPub, s.WalletPubKey)
	require.Equal(t, EncryptionNIP44v2, s.Encryption)

	_, err = NewClientSession(testWalletPub,
		[]string{"nip44-v2"}, []string{"nip04"})
	require.ErrorIs(t, err, ErrNoEncryption)

	w, err := NewWalletSession(testWalletPub,
		[]string{"nip04"}, []string{"nip04"})
	require.NoError(t, err)
	require.Equal(t, EncryptionNIP04, w.Encryption)
}

func TestParseURI(t *testing.T) {
	u, err := ParseURI(
		"nostr+walletconnect://" + testWalletPub +
			"?relay=wss%3A%2F%2Fb.example.com&relay=wss%3A%2F%2Fa.example.com" +
			"&secret=" + testSecret + "&lud16=user%40example.com")
	require.NoError(t, err)
	require.Equal(t, testWalletPub, u.WalletPubKey)
	// relay order is preserved, not sorted
	require.Equal(t,
		[]string{"wss://b.example.com", "wss://a.example.com"}, u.Relays)
	require.Equal(t, testSecret, u.Secret)
	require.Equal(t, "user@example.com", u.Lud16)
}

func TestParseURIRejects(t *testing.T) {
	for _, s := range []string{
		"",
		"https://example.com",
		"nostr+walletconnect://nothex?relay=wss://r&secret=" + testSecret,
		"nostr+walletconnect://" + testWalletPub + "?secret=" + testSecret,
		"nostr+walletconnect://" + testWalletPub + "?relay=wss://r",
		"nostr+walletconnect://" + testWalletPub +
			"?relay=wss://r&secret=tooshort",
	} {
		_, err := ParseURI(s)
		require.Error(t, err, s)
	}
}

func TestURIRoundTrip(t *testing.T) {
	u := &URI{
		WalletPubKey: testWalletPub,
		Relays:       []string{"wss://b.example.com", "wss://a.example.com"},
		Secret:       testSecret,
		Lud16:        "user@example.com",
	}
	back, err := ParseURI(u.String())
	require.NoError(t, err)
	require.Equal(t, u, back)
}

func TestBuildParseRequest(t *testing.T) {
	ev, err := BuildRequest("get_balance", `{"unit":"sat"}`,
		testWalletPub, EncryptionNIP44v2)
	require.NoError(t, err)
	require.Equal(t, kind.NWCWalletRequest, ev.Kind)
	require.Equal(t,
		`{"method":"get_balance","params":{"unit":"sat"}}`, ev.Content)
	require.NotNil(t, ev.Tags.GetFirst([]string{"p", testWalletPub}))
	require.NotNil(t, ev.Tags.GetFirst([]string{"encryption", "nip44-v2"}))

	req, err := ParseRequest(ev)
	require.NoError(t, err)
	require.Equal(t, "get_balance", req.Method)
	require.JSONEq(t, `{"unit":"sat"}`, req.Params)
	require.Equal(t, testWalletPub, req.WalletPubKey)
	require.Equal(t, EncryptionNIP44v2, req.Encryption)
}

func TestBuildRequestStructParams(t *testing.T) {
	ev, err := BuildRequest("pay_invoice", map[string]string{
		"invoice": "lnbc1",
	}, testWalletPub, EncryptionNIP04)
	require.NoError(t, err)
	require.Equal(t,
		`{"method":"pay_invoice","params":{"invoice":"lnbc1"}}`, ev.Content)
}

func TestParseRequestDefaultsParams(t *testing.T) {
	ev, err := BuildRequest("get_info", nil, testWalletPub,
		EncryptionNIP44v2)
	require.NoError(t, err)
	req, err := ParseRequest(ev)
	require.NoError(t, err)
	require.Equal(t, "{}", req.Params)

	// params entirely absent on the wire
	ev.Content = `{"method":"get_info"}`
	req, err = ParseRequest(ev)
	require.NoError(t, err)
	require.Equal(t, "{}", req.Params)
}

func TestBuildParseResponse(t *testing.T) {
	reqID := eventid.T(
		"45326f5d6962ab1e3cd424e758c3002b8665f7b0d8dcee9fe9e288d7751ac194")
	ev, err := BuildResponse("get_balance", `{"balance":21000}`, reqID,
		testWalletPub, EncryptionNIP44v2)
	require.NoError(t, err)
	require.Equal(t, kind.NWCWalletResponse, ev.Kind)

	res, err := ParseResponse(ev)
	require.NoError(t, err)
	require.Equal(t, "get_balance", res.ResultType)
	require.JSONEq(t, `{"balance":21000}`, res.Result)
	require.Empty(t, res.ErrorCode)
	require.Equal(t, reqID, res.RequestID)
	require.Equal(t, testWalletPub, res.ClientPubKey)
	require.Equal(t, EncryptionNIP44v2, res.Encryption)
}

func TestParseErrorResponse(t *testing.T) {
	reqID := eventid.T(
		"45326f5d6962ab1e3cd424e758c3002b8665f7b0d8dcee9fe9e288d7751ac194")
	ev, err := BuildErrorResponse("RATE_LIMIT", "slow down", reqID,
		testWalletPub, EncryptionNIP04)
	require.NoError(t, err)

	res, err := ParseResponse(ev)
	require.NoError(t, err)
	require.Equal(t, "RATE_LIMIT", res.ErrorCode)
	require.Equal(t, "slow down", res.ErrorMessage)
	require.Empty(t, res.ResultType)
}

func TestParseRejectsWrongKind(t *testing.T) {
	req, err := BuildRequest("get_info", nil, testWalletPub,
		EncryptionNIP44v2)
	require.NoError(t, err)
	res, err := BuildResponse("get_info", nil, "", testWalletPub,
		EncryptionNIP44v2)
	require.NoError(t, err)

	_, err = ParseRequest(res)
	require.Error(t, err)
	_, err = ParseResponse(req)
	require.Error(t, err)
}

func TestParseResponseRejectsAmbiguousContent(t *testing.T) {
	ev, err := BuildResponse("get_info", nil, "", testWalletPub,
		EncryptionNIP44v2)
	require.NoError(t, err)

	// both branches present
	ev.Content = `{"result_type":"x","result":null,` +
		`"error":{"code":"INTERNAL","message":"boom"}}`
	_, err = ParseResponse(ev)
	require.Error(t, err)

	// neither branch present
	ev.Content = `{}`
	_, err = ParseResponse(ev)
	require.Error(t, err)
}

func TestParseInfoEvent(t *testing.T) {
	ev, err := BuildInfoEvent([]string{"pay_invoice", "get_balance"},
		[]string{"nip44-v2", "nip04"}, true)
	require.NoError(t, err)
	require.Equal(t, kind.NWCWalletInfo, ev.Kind)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(ev.Content), &body))
	require.Contains(t, body, "methods")

	info, err := ParseInfoEvent(ev)
	require.NoError(t, err)
	require.Equal(t, []string{"pay_invoice", "get_balance"}, info.Methods)
	require.Equal(t, []string{"nip44-v2", "nip04"}, info.Encryptions)
	require.True(t, info.Notifications)
}
