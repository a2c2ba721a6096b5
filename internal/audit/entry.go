// Package audit records security relevant actions. Recording is best-effort:
// it never blocks a request and never reports failures to the caller.
package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Action string

const (
	ActionRegister             Action = "REGISTER"
	ActionLogin                Action = "LOGIN"
	ActionLogout               Action = "LOGOUT"
	ActionCreate               Action = "CREATE"
	ActionRead                 Action = "READ"
	ActionUpdate               Action = "UPDATE"
	ActionDelete               Action = "DELETE"
	ActionExport               Action = "EXPORT"
	ActionPasswordResetRequest Action = "PASSWORD_RESET_REQUEST"
	ActionPasswordReset        Action = "PASSWORD_RESET"
)

const (
	ResourceUser       = "user"
	ResourceCategories = "categories"
	ResourceExpenses   = "expenses"

	ResourceIDUnknown = "unknown"
	ResourceIDList    = "list"
)

const (
	maxIPLength         = 45
	maxResourceIDLength = 100
	maxUserAgentLength  = 512
	unknownUserAgent    = "unknown"
)

type Entry struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	Action     Action     `json:"action"`
	Resource   string     `json:"resource"`
	ResourceID string     `json:"resourceId"`
	Success    bool       `json:"success"`
	IPAddress  string     `json:"ipAddress"`
	UserAgent  string     `json:"userAgent"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Sink accepts entries. Implementations must not block or fail the caller.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// Store persists or forwards a single entry.
type Store interface {
	Write(ctx context.Context, entry Entry) error
}

// FromRequest starts an entry with the client address and user agent of r.
func FromRequest(r *http.Request, action Action, resource string) Entry {
	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = unknownUserAgent
	}
	return Entry{
		Action:     action,
		Resource:   resource,
		ResourceID: ResourceIDUnknown,
		IPAddress:  ClientIP(r),
		UserAgent:  userAgent,
	}
}

func (e Entry) WithUser(userID uuid.UUID) Entry {
	if userID != uuid.Nil {
		e.UserID = &userID
	}
	return e
}

func (e Entry) WithResourceID(id string) Entry {
	if id != "" {
		e.ResourceID = id
	}
	return e
}

func (e Entry) Succeeded(success bool) Entry {
	e.Success = success
	return e
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func ClientIP(r *http.Request) string {
	ip := ""
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if ip == "" {
		ip = strings.TrimSpace(r.Header.Get("X-Real-IP"))
	}
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}
	if ip == "" {
		ip = "unknown"
	}
	return truncate(ip, maxIPLength)
}

// truncate makes s storable in a text column: invalid UTF-8 and NUL bytes are
// replaced and the result is cut to max runes.
func truncate(s string, max int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.ReplaceAll(s, "\x00", "\uFFFD")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func (e *Entry) normalize(now time.Time) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
	if e.ResourceID == "" {
		e.ResourceID = ResourceIDUnknown
	}
	e.ResourceID = truncate(e.ResourceID, maxResourceIDLength)
	if e.UserAgent == "" {
		e.UserAgent = unknownUserAgent
	}
	e.UserAgent = truncate(e.UserAgent, maxUserAgentLength)
	if e.IPAddress == "" {
		e.IPAddress = "unknown"
	}
	e.IPAddress = truncate(e.IPAddress, maxIPLength)
}
