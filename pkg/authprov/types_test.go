package authprov

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multiProfileProvider() *Descriptor {
	return &Descriptor{
		ID: "multi",
		Profiles: []CredentialProfile{
			{
				ID: "password",
				Parameters: []Property{
					{ID: "user", Identifying: true, Encryption: EncryptionNone},
					{ID: "password", Encryption: EncryptionHash},
				},
			},
			{
				ID: "token",
				Parameters: []Property{
					{ID: "token", Identifying: true, Encryption: EncryptionNone},
				},
			},
		},
	}
}

func TestProfileByParametersExactMatch(t *testing.T) {
	provider := multiProfileProvider()

	profile := provider.ProfileByParameters([]string{"token"})
	require.NotNil(t, profile)
	assert.Equal(t, "token", profile.ID)

	profile = provider.ProfileByParameters([]string{"user", "password"})
	require.NotNil(t, profile)
	assert.Equal(t, "password", profile.ID)
}

func TestProfileByParametersFallsBackToFirst(t *testing.T) {
	provider := multiProfileProvider()

	// No profile matches the key set exactly; the first declared wins
	profile := provider.ProfileByParameters([]string{"user"})
	require.NotNil(t, profile)
	assert.Equal(t, "password", profile.ID)
}

func TestProfileByParametersSingleProfile(t *testing.T) {
	provider := LocalProvider()

	profile := provider.ProfileByParameters([]string{"anything"})
	require.NotNil(t, profile)
	assert.Equal(t, "default", profile.ID)
}

func TestProfileByParametersNoProfiles(t *testing.T) {
	provider := &Descriptor{ID: "bare"}
	assert.Nil(t, provider.ProfileByParameters([]string{"user"}))
}

func TestCredentialParameters(t *testing.T) {
	provider := multiProfileProvider()

	props := provider.CredentialParameters([]string{"user", "token", "unknown"})
	require.Len(t, props, 2)
	assert.Equal(t, "user", props[0].ID)
	assert.Equal(t, "token", props[1].ID)
}

func TestProfileParameterLookup(t *testing.T) {
	profile := &LocalProvider().Profiles[0]

	prop := profile.Parameter("password")
	require.NotNil(t, prop)
	assert.Equal(t, EncryptionHash, prop.Encryption)

	assert.Nil(t, profile.Parameter("ghost"))
}
