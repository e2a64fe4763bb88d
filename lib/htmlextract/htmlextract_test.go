package htmlextract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGatewayParams(t *testing.T) {
	html := `
		<script>
			var mac = "AA:BB:CC:DD:EE:FF";
			var ip = "192.168.88.1";
			var chap_id = "42";
			var chap_challenge = "abcdef123456";
			"link-login-only": 'http://gateway.local/login'
		</script>
	`

	gw, err := ParseGatewayParams(html)
	require.NoError(t, err)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", gw.MAC)
	require.Equal(t, "192.168.88.1", gw.IP)
	require.Equal(t, "abcdef123456", gw.ChapChallenge)
	require.Equal(t, "http://gateway.local/login", gw.LinkLoginOnly)
}

func TestParseGatewayParamsMissingChallenge(t *testing.T) {
	html := `
		var mac = "AA:BB:CC:DD:EE:FF";
		var ip = "192.168.88.1";
		var chap_id = "123";
	`

	_, err := ParseGatewayParams(html)
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestParseGatewayParamsFirstMatchWins(t *testing.T) {
	html := `
		var ip = "10.0.0.1";
		var ip = "10.0.0.2";
		var chap_challenge = "first";
		var chap_challenge = "second";
	`

	gw, err := ParseGatewayParams(html)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", gw.IP)
	require.Equal(t, "first", gw.ChapChallenge)
}

func TestParseGatewayParamsOptionalFieldsDefaultEmpty(t *testing.T) {
	gw, err := ParseGatewayParams(`chap_challenge: "only-this"`)
	require.NoError(t, err)
	require.Equal(t, "only-this", gw.ChapChallenge)
	require.Empty(t, gw.MAC)
	require.Empty(t, gw.IP)
	require.Empty(t, gw.ChapID)
	require.Empty(t, gw.LinkLoginOnly)
}

func TestParseCredentials(t *testing.T) {
	testCases := []struct {
		name string
		html string
	}{
		{
			name: "name before value",
			html: `<form>
				<input type="hidden" name="username" value="user123">
				<input type="hidden" name="password" value="pass456">
			</form>`,
		},
		{
			name: "value before name",
			html: `<form>
				<input type="hidden" value="user123" name="username">
				<input type="hidden" value="pass456" name="password">
			</form>`,
		},
		{
			name: "mixed order and single quotes",
			html: `<form>
				<input value='user123' type='hidden' name='username'>
				<input name='password' type='hidden' value='pass456'>
			</form>`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			creds, err := ParseCredentials(tc.html)
			require.NoError(t, err)
			require.Equal(t, "user123", creds.Username)
			require.Equal(t, "pass456", creds.Password)
		})
	}
}

func TestParseCredentialsMissingField(t *testing.T) {
	_, err := ParseCredentials(`<input name="username" value="user123">`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "password")

	_, err = ParseCredentials(`<input name="password" value="pass456">`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "username")
}

func TestParseCredentialsFirstMatchWins(t *testing.T) {
	creds, err := ParseCredentials(`
		<input name="username" value="first">
		<input name="username" value="second">
		<input name="password" value="pw">
	`)
	require.NoError(t, err)
	require.Equal(t, "first", creds.Username)
}

func TestParseCredentialsEmptyValueIsValid(t *testing.T) {
	creds, err := ParseCredentials(`
		<input name="username" value="">
		<input name="password" value="pw">
	`)
	require.NoError(t, err)
	require.Empty(t, creds.Username)
	require.Equal(t, "pw", creds.Password)
}
