package security

import (
	"time"

	"github.com/google/uuid"
)

// SubjectKind tags an identity subject as a user or a role. Users and roles
// share one id namespace.
type SubjectKind string

const (
	SubjectUser SubjectKind = "U"
	SubjectRole SubjectKind = "R"
)

// PermissionPublic is granted to every role at creation
const PermissionPublic = "public"

// Char-bool encoding used by the store
const (
	charBoolTrue  = "Y"
	charBoolFalse = "N"
)

func charBool(v bool) string {
	if v {
		return charBoolTrue
	}
	return charBoolFalse
}

// User is a subject of kind User
type User struct {
	ID        string
	Active    bool
	CreatedAt time.Time

	// MetaParameters are free-form profile attributes, replaceable
	// wholesale via SetUserMeta. Distinct from the server-side parameters
	// managed with SetUserParameter.
	MetaParameters map[string]string
}

// NewUser creates an active user with the given id
func NewUser(id string) *User {
	return &User{
		ID:             id,
		Active:         true,
		MetaParameters: make(map[string]string),
	}
}

// SetMetaParameter sets one meta attribute
func (u *User) SetMetaParameter(id, value string) {
	if u.MetaParameters == nil {
		u.MetaParameters = make(map[string]string)
	}
	u.MetaParameters[id] = value
}

// Role is a subject of kind Role
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time

	// Permissions directly granted to the role. Populated by ReadAllRoles
	// and FindRole.
	Permissions []string
}

// Session is a persisted client session. A session belongs to at most one
// user (empty UserID means anonymous) and to exactly one serving instance at
// a time, last writer winning.
type Session struct {
	ID                  string
	UserID              string
	CreatedAt           time.Time
	LastAccessTime      time.Time
	LastRemoteAddress   string
	LastRemoteUserAgent string
	InstanceID          string
}

// NewSession creates a session with a fresh random id
func NewSession(userID string) *Session {
	return &Session{
		ID:     uuid.NewString(),
		UserID: userID,
	}
}

// ConnectionGrant asserts that a subject may access a datasource
type ConnectionGrant struct {
	DataSourceID string
	SubjectID    string
	SubjectKind  SubjectKind
}

// Limits applied to session access metadata before storage
const (
	maxRemoteAddressLen = 128
	maxUserAgentLen     = 255
)

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
