package models

// Validity of the bearer credential as last observed.
type Validity int

const (
	ValidityUnknown Validity = iota
	ValidityValid
)

func (v Validity) String() string {
	if v == ValidityValid {
		return "valid"
	}
	return "unknown"
}

// Credential is the bearer token used against the remote service.
type Credential struct {
	Value    string
	Validity Validity
}

// Principal holds the long-lived login used to mint a new bearer token.
type Principal struct {
	Username string
	Password string
}

// Complete reports whether both username and password are set.
func (p Principal) Complete() bool {
	return p.Username != "" && p.Password != ""
}
