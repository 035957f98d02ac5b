package authprov

// LocalProviderID is the id of the built-in user/password provider
const LocalProviderID = "local"

// LocalProvider returns the descriptor for the built-in user/password
// provider. The user name identifies the account and is stored verbatim;
// the password is stored as a one-way hash.
func LocalProvider() *Descriptor {
	return &Descriptor{
		ID:    LocalProviderID,
		Label: "Local",
		Profiles: []CredentialProfile{
			{
				ID:    "default",
				Label: "User name and password",
				Parameters: []Property{
					{
						ID:          "user",
						DisplayName: "User name",
						Identifying: true,
						Encryption:  EncryptionNone,
					},
					{
						ID:          "password",
						DisplayName: "Password",
						Encryption:  EncryptionHash,
					},
				},
			},
		},
	}
}
