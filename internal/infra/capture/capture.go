// Package capture parses login transcripts pasted by operators into the
// session material an account needs: cookies and request headers.
package capture

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Capture is the session material extracted from one pasted transcript.
type Capture struct {
	Cookies map[string]string
	Headers map[string]string
}

// CookieJSON encodes the cookies for storage on an account record.
func (c *Capture) CookieJSON() string {
	raw, _ := json.Marshal(c.Cookies)

	return string(raw)
}

// HeaderJSON encodes the headers for storage on an account record.
func (c *Capture) HeaderJSON() string {
	raw, _ := json.Marshal(c.Headers)

	return string(raw)
}

// CookieHeader renders the cookies as one request header value, keys sorted
// for stable output.
func (c *Capture) CookieHeader() string {
	keys := make([]string, 0, len(c.Cookies))
	for key := range c.Cookies {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+c.Cookies[key])
	}

	return strings.Join(pairs, "; ")
}

// fastlanePair matches the cookie dump lines of a fastlane spaceship session
// export, one "name: X value: Y" pair per cookie.
var fastlanePair = regexp.MustCompile(`name:\s+(\S+)\s+value:\s+(\S+)`)

// ParseFastlane extracts session cookies from a fastlane session export.
func ParseFastlane(output string) (*Capture, error) {
	cookies := map[string]string{}
	for _, match := range fastlanePair.FindAllStringSubmatch(output, -1) {
		cookies[match[1]] = match[2]
	}
	if len(cookies) == 0 {
		return nil, errors.New("no session cookies found in transcript")
	}

	return &Capture{Cookies: cookies, Headers: map[string]string{}}, nil
}

// ParseCurl extracts cookies and headers from a browser-exported curl
// command. Both -H/--header and -b/--cookie flags contribute; a Cookie
// header is folded into the cookie set rather than kept as a header.
func ParseCurl(transcript string) (*Capture, error) {
	tokens := tokenize(transcript)

	capture := &Capture{
		Cookies: map[string]string{},
		Headers: map[string]string{},
	}
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "-H", "--header":
			if i+1 >= len(tokens) {
				return nil, errors.New("dangling header flag in transcript")
			}
			i++
			key, value, ok := strings.Cut(tokens[i], ":")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			if strings.EqualFold(key, "cookie") {
				addCookies(capture.Cookies, value)
			} else {
				capture.Headers[key] = value
			}
		case "-b", "--cookie":
			if i+1 >= len(tokens) {
				return nil, errors.New("dangling cookie flag in transcript")
			}
			i++
			addCookies(capture.Cookies, tokens[i])
		}
	}
	if len(capture.Cookies) == 0 {
		return nil, errors.New("no session cookies found in transcript")
	}

	return capture, nil
}

func addCookies(cookies map[string]string, header string) {
	for _, pair := range strings.Split(header, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" {
			continue
		}
		cookies[key] = value
	}
}

// tokenize splits a pasted curl command the way a shell would: quoted
// segments stay whole, backslash-newline continuations disappear.
func tokenize(transcript string) []string {
	var tokens []string
	var current strings.Builder
	inToken := false
	quote := byte(0)

	flush := func() {
		if inToken {
			tokens = append(tokens, current.String())
			current.Reset()
			inToken = false
		}
	}

	for i := 0; i < len(transcript); i++ {
		ch := transcript[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				current.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inToken = true
		case ch == '\\' && i+1 < len(transcript) && (transcript[i+1] == '\n' || transcript[i+1] == '\r'):
			i++
			flush()
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		default:
			current.WriteByte(ch)
			inToken = true
		}
	}
	flush()

	return tokens
}
