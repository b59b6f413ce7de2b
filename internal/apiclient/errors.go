package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Kind is the discrete failure category of an API call, decided where the
// HTTP status (or the transport failure) is known.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalid      Kind = "invalid_request"
	KindRateLimited  Kind = "rate_limited"
	KindServer       Kind = "server"
	KindDecode       Kind = "decode"
	KindUnexpected   Kind = "unexpected"
)

// ErrNoCredentials is returned when a token is needed and neither a token nor
// Telegram init data is available to obtain one.
var ErrNoCredentials = errors.New("no credentials: set TELEGRAM_INIT_DATA or CONNECT_TOKEN")

// Error describes a failed API call.
type Error struct {
	Op      string
	Status  int
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if e.Status != 0 {
		fmt.Fprintf(&b, "%d ", e.Status)
	}
	b.WriteString(string(e.Kind))
	if e.Code != "" {
		b.WriteString(" ")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of an *Error anywhere in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsTransient reports whether retrying the same call later may succeed.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer, KindRateLimited:
		return true
	}
	return false
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindInvalid
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindUnexpected
	}
}

// errorBody accepts both {"detail": "..."} and the {"error": {"code","message"}} envelope.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status, Kind: kindForStatus(status)}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		e.Message = truncate(strings.TrimSpace(string(body)), maxRawMessage)
		return e
	}

	if eb.Error != nil {
		e.Code = eb.Error.Code
		e.Message = eb.Error.Message
	}
	if e.Message == "" && len(eb.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(eb.Detail, &detail); err == nil {
			e.Message = detail
		} else {
			e.Message = string(eb.Detail)
		}
	}
	return e
}

const maxRawMessage = 200

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
