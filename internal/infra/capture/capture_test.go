package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurl(t *testing.T) {
	t.Parallel()

	transcript := `curl 'https://developer.example.com/services-account/QH65B2/account/ios/device/listDevices.action' \
  -H 'accept: application/json, text/plain, */*' \
  -H 'user-agent: Mozilla/5.0' \
  -H "cookie: myacinfo=DAWTKN123; dqsid=abc" \
  -b 'wosid=xyz; woinst=42' \
  --data-raw 'teamId=ABCDE12345'`

	capture, err := ParseCurl(transcript)
	require.NoError(t, err)

	assert.Equal(t, "DAWTKN123", capture.Cookies["myacinfo"])
	assert.Equal(t, "abc", capture.Cookies["dqsid"])
	assert.Equal(t, "xyz", capture.Cookies["wosid"])
	assert.Equal(t, "42", capture.Cookies["woinst"])
	assert.Equal(t, "Mozilla/5.0", capture.Headers["user-agent"])
	assert.NotContains(t, capture.Headers, "cookie")
}

func TestParseCurlNoCookies(t *testing.T) {
	t.Parallel()

	_, err := ParseCurl(`curl 'https://example.com' -H 'accept: */*'`)
	require.Error(t, err)
}

func TestParseFastlane(t *testing.T) {
	t.Parallel()

	output := `---
- !ruby/object:HTTP::Cookie
  name:  myacinfo
  value: DAWTKN456
- !ruby/object:HTTP::Cookie
  name:  DES123
  value: HSARMTKN789`

	capture, err := ParseFastlane(output)
	require.NoError(t, err)

	assert.Equal(t, "DAWTKN456", capture.Cookies["myacinfo"])
	assert.Equal(t, "HSARMTKN789", capture.Cookies["DES123"])
}

func TestCookieHeaderStable(t *testing.T) {
	t.Parallel()

	capture := &Capture{Cookies: map[string]string{"b": "2", "a": "1"}}
	assert.Equal(t, "a=1; b=2", capture.CookieHeader())
}
