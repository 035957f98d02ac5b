package authprov

// Encryption identifies the transformation applied to a credential value
// before it is stored.
type Encryption string

const (
	// EncryptionNone stores the value verbatim.
	EncryptionNone Encryption = "none"
	// EncryptionPlain also stores the value verbatim; kept distinct so a
	// provider can mark a value as intentionally plaintext.
	EncryptionPlain Encryption = "plain"
	// EncryptionHash stores a one-way hash. Hashed values cannot be used
	// for equality lookup, so identifying properties must not use it.
	EncryptionHash Encryption = "hash"
	// EncryptionEncrypted stores a reversible ciphertext under the server
	// credential secret.
	EncryptionEncrypted Encryption = "encrypted"
)

// Property describes one credential parameter a provider accepts
type Property struct {
	ID          string
	DisplayName string
	Description string

	// Identifying properties participate in user lookup by value equality.
	Identifying bool
	Encryption  Encryption
}

// CredentialProfile is a named schema of parameters a provider accepts for
// one login mode
type CredentialProfile struct {
	ID         string
	Label      string
	Parameters []Property
}

// Parameter returns the property with the given id, or nil
func (p *CredentialProfile) Parameter(id string) *Property {
	for i := range p.Parameters {
		if p.Parameters[i].ID == id {
			return &p.Parameters[i]
		}
	}
	return nil
}

// Descriptor describes a registered authentication provider
type Descriptor struct {
	ID       string
	Label    string
	Profiles []CredentialProfile
}

// ProfileByParameters selects the credential profile matching the supplied
// parameter names. With more than one profile, the profile whose parameter
// set exactly equals the supplied key set wins; otherwise the first declared
// profile is used.
func (d *Descriptor) ProfileByParameters(keys []string) *CredentialProfile {
	if len(d.Profiles) == 0 {
		return nil
	}
	if len(d.Profiles) > 1 {
		for i := range d.Profiles {
			profile := &d.Profiles[i]
			if len(profile.Parameters) != len(keys) {
				continue
			}
			matches := true
			for _, key := range keys {
				if profile.Parameter(key) == nil {
					matches = false
					break
				}
			}
			if matches {
				return profile
			}
		}
	}
	return &d.Profiles[0]
}

// CredentialParameters returns the properties across all profiles whose id
// appears in keys, first declaration winning on duplicates.
func (d *Descriptor) CredentialParameters(keys []string) []Property {
	keySet := make(map[string]bool, len(keys))
	for _, key := range keys {
		keySet[key] = true
	}

	seen := make(map[string]bool)
	var props []Property
	for i := range d.Profiles {
		for _, prop := range d.Profiles[i].Parameters {
			if keySet[prop.ID] && !seen[prop.ID] {
				seen[prop.ID] = true
				props = append(props, prop)
			}
		}
	}
	return props
}
