package domain

// ExternalIdentity is a verified assertion from an external identity provider
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
