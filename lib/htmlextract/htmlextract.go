// Package htmlextract pulls structured fields out of the loosely formatted
// pages captive portals serve: gateway parameters assigned in embedded
// scripts, and credentials hidden in form inputs. It is the only place that
// knows how scruffy that markup is.
package htmlextract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var ErrChallengeNotFound = errors.New("chap_challenge not found")

// GatewayParams is extracted from the captive redirect page once per
// authentication attempt. ChapChallenge is the only field the gateway is
// guaranteed to emit.
type GatewayParams struct {
	MAC           string
	IP            string
	ChapID        string
	ChapChallenge string
	LinkLoginOnly string
}

type Credentials struct {
	Username string
	Password string
}

// matches `key = "value"` and `key: 'value'` style assignments in html or
// embedded script text, with either quote style
func assignedValue(text, key string) string {
	pattern := fmt.Sprintf(`["']?%s["']?\s*[:=]\s*["']([^"']+)["']`, regexp.QuoteMeta(key))
	groups := regexp.MustCompile(pattern).FindStringSubmatch(text)
	if len(groups) < 2 {
		return ""
	}
	return groups[1]
}

// ParseGatewayParams scans the raw captive redirect page for the gateway's
// connection parameters. The first assignment wins when a key repeats.
// A missing chap challenge is a hard failure, everything else defaults to
// the empty string.
func ParseGatewayParams(text string) (GatewayParams, error) {
	challenge := assignedValue(text, "chap_challenge")
	if challenge == "" {
		return GatewayParams{}, ErrChallengeNotFound
	}

	return GatewayParams{
		MAC:           assignedValue(text, "mac"),
		IP:            assignedValue(text, "ip"),
		ChapID:        assignedValue(text, "chap_id"),
		ChapChallenge: challenge,
		LinkLoginOnly: assignedValue(text, "link-login-only"),
	}, nil
}

func inputValue(doc *goquery.Document, name string) (string, error) {
	sel := doc.Find(fmt.Sprintf(`input[name=%q]`, name))
	if sel.Length() == 0 {
		return "", fmt.Errorf("%s not found in form", name)
	}
	// first match wins; multiple same-named inputs are not disambiguated
	return sel.First().AttrOr("value", ""), nil
}

// ParseCredentials scans an authentication form fragment for the hidden
// username and password inputs. Attribute order within the input tags does
// not matter. Either field missing is a failure; an empty value is not.
func ParseCredentials(formHTML string) (Credentials, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(formHTML))
	if err != nil {
		return Credentials{}, err
	}

	username, err := inputValue(doc, "username")
	if err != nil {
		return Credentials{}, err
	}
	password, err := inputValue(doc, "password")
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{Username: username, Password: password}, nil
}
