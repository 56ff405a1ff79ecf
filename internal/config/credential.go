package config

import (
	"fmt"
	"slices"
	"strings"
)

// CredentialType is the kind of a credential document.
type CredentialType string

const (
	// CredentialSNMPv1 holds an SNMPv1 community.
	CredentialSNMPv1 CredentialType = "snmpv1"

	// CredentialSNMPv3 holds an SNMPv3 user.
	CredentialSNMPv3 CredentialType = "snmpv3"

	// CredentialUserPassword holds a REST username and password.
	CredentialUserPassword CredentialType = "user_password"
)

// SNMPv3 security levels.
const (
	SecurityNoAuthNoPriv = "noAuthNoPriv"
	SecurityAuthNoPriv   = "authNoPriv"
	SecurityAuthPriv     = "authPriv"
)

var (
	securityLevels = []string{SecurityNoAuthNoPriv, SecurityAuthNoPriv, SecurityAuthPriv}
	authProtocols  = []string{"MD5", "SHA", "SHA256", "SHA384", "SHA512"}
	privProtocols  = []string{"DES", "AES", "AES192", "AES256"}
)

// Credential is a credential document referenced by id from discovery requests.
type Credential struct {
	Type CredentialType `yaml:"type"`

	// SNMPv1
	Community string `yaml:"community,omitempty"`

	// SNMPv3
	SecurityName  string `yaml:"security_name,omitempty"`
	SecurityLevel string `yaml:"security_level,omitempty"`
	AuthProtocol  string `yaml:"auth_protocol,omitempty"`
	AuthPassword  string `yaml:"auth_password,omitempty"`
	PrivProtocol  string `yaml:"priv_protocol,omitempty"`
	PrivPassword  string `yaml:"priv_password,omitempty"`

	// user_password
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Validate checks that the document carries what its type needs.
func (c Credential) Validate() error {
	switch c.Type {
	case CredentialSNMPv1:
		if c.Community == "" {
			return fmt.Errorf("%w: snmpv1 community is empty", ErrInvalidCredential)
		}
	case CredentialSNMPv3:
		if c.SecurityName == "" {
			return fmt.Errorf("%w: snmpv3 security name is empty", ErrInvalidCredential)
		}
		if c.SecurityLevel != "" && !slices.Contains(securityLevels, c.SecurityLevel) {
			return fmt.Errorf("%w: unknown security level %q", ErrInvalidCredential, c.SecurityLevel)
		}
		if c.AuthProtocol != "" && !slices.Contains(authProtocols, strings.ToUpper(c.AuthProtocol)) {
			return fmt.Errorf("%w: unknown auth protocol %q", ErrInvalidCredential, c.AuthProtocol)
		}
		if c.PrivProtocol != "" && !slices.Contains(privProtocols, strings.ToUpper(c.PrivProtocol)) {
			return fmt.Errorf("%w: unknown priv protocol %q", ErrInvalidCredential, c.PrivProtocol)
		}
	case CredentialUserPassword:
		if c.Username == "" {
			return fmt.Errorf("%w: username is empty", ErrInvalidCredential)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCredential, c.Type)
	}
	return nil
}

// CredentialStore resolves credential ids to documents.
type CredentialStore interface {
	Credential(id string) (Credential, error)
}

// Credential returns the document registered under id.
func (cf *File) Credential(id string) (Credential, error) {
	if cf == nil {
		return Credential{}, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}
	cred, ok := cf.Credentials[id]
	if !ok {
		return Credential{}, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}
	return cred, nil
}
