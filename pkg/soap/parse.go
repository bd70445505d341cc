package soap

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	bodyRegex     = regexp.MustCompile(`(?is)<(?:soap:|SOAP-ENV:|soapenv:)?Body[^>]*>(.*?)</(?:soap:|SOAP-ENV:|soapenv:)?Body>`)
	usernameRegex = fieldRegex("username")
	emailRegex    = fieldRegex("email")
	idRegex       = fieldRegex("id")
	userIDRegex   = fieldRegex("userId")
)

// fieldRegex matches <name>text</name> with an optional word prefix on either
// tag. Text stops at the first '<'.
func fieldRegex(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)<(?:\w+:)?` + name + `[^>]*>([^<]*)</(?:\w+:)?` + name + `>`)
}

// Parse interprets a raw SOAP envelope. It fails with ErrMalformedRequest when
// no Body element is found, ErrUnknownOperation when the body names none of
// the supported operations, and ErrMissingField when a required field is absent.
func Parse(raw string) (Operation, error) {
	m := bodyRegex.FindStringSubmatch(raw)
	if m == nil {
		return nil, requestError(ErrMalformedRequest, "Invalid SOAP request: Body not found")
	}
	body := strings.TrimSpace(m[1])

	// GetUserList contains GetUser, so list detection must run first.
	switch {
	case containsAny(body, "RegisterUser", "registerUser"):
		return parseRegisterUser(body)
	case containsAny(body, "GetUsers", "getUsers", "GetUserList", "getUserList"):
		return GetUsers{}, nil
	case containsAny(body, "GetUser", "getUser"):
		return parseGetUser(body)
	}

	return nil, requestError(ErrUnknownOperation, "Unknown SOAP operation")
}

func parseRegisterUser(body string) (Operation, error) {
	username := usernameRegex.FindStringSubmatch(body)
	email := emailRegex.FindStringSubmatch(body)
	if username == nil || email == nil {
		return nil, requestError(ErrMissingField, "RegisterUser requires username and email")
	}

	return RegisterUser{
		Username: strings.TrimSpace(username[1]),
		Email:    strings.TrimSpace(email[1]),
	}, nil
}

func parseGetUser(body string) (Operation, error) {
	m := idRegex.FindStringSubmatch(body)
	if m == nil {
		m = userIDRegex.FindStringSubmatch(body)
	}
	if m == nil {
		return nil, requestError(ErrMissingField, "GetUser requires id")
	}

	id, ok := parseLeadingInt(strings.TrimSpace(m[1]))
	if !ok {
		return nil, requestError(ErrMissingField, "GetUser requires id")
	}
	return GetUser{ID: id}, nil
}

// parseLeadingInt parses an optional sign followed by as many decimal digits as
// possible, ignoring whatever follows. ok is false when there are no digits.
// Values beyond the int range clamp to math.MaxInt or math.MinInt.
func parseLeadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}

	// Out of range values saturate; no stored id can match them.
	n, err := strconv.Atoi(s[:end])
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return n, true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
