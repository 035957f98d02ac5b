package security

import "errors"

// Error taxonomy of the authorization core. Operations wrap these sentinels
// with contextual messages; callers classify with errors.Is.
var (
	// ErrSubjectExists reports a duplicate user or role id at creation.
	ErrSubjectExists = errors.New("subject already exists")

	// ErrNotFound reports an update or delete whose target row is absent.
	ErrNotFound = errors.New("not found")

	// ErrRoleInUse reports a role deletion blocked by live user assignments.
	ErrRoleInUse = errors.New("role is in use")

	// ErrInvalidCredentials reports malformed or missing credential
	// parameters, including the illegal hash-on-identifying configuration.
	ErrInvalidCredentials = errors.New("invalid credential parameters")

	// ErrAccountLocked reports a credential match resolving to an
	// inactive user.
	ErrAccountLocked = errors.New("user account is locked")

	// ErrStorage reports an underlying store failure; the driver error is
	// wrapped alongside it.
	ErrStorage = errors.New("storage failure")
)
