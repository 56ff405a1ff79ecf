package nut

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/powerdisco/internal/config"
	"github.com/nao1215/powerdisco/internal/model"
)

// Driver executable names.
const (
	DriverSNMP     = "snmp-ups"
	DriverXML      = "netxml-ups"
	DriverPowercom = "etn-nut-powerconnect"
)

var drivers = map[string]string{
	model.ProtocolSNMP:     DriverSNMP,
	model.ProtocolXMLPDC:   DriverXML,
	model.ProtocolPowercom: DriverPowercom,
}

var defaultPorts = map[string]uint16{
	model.ProtocolSNMP:     161,
	model.ProtocolXMLPDC:   80,
	model.ProtocolPowercom: 443,
}

// Command is one driver invocation.
type Command struct {
	Protocol string
	Path     string
	Args     []string
	Env      []string

	// StatePath requests a private NUT_STATEPATH directory.
	StatePath bool
}

// Driver returns the executable name of protocol.
func Driver(protocol string) (string, error) {
	name, ok := drivers[protocol]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
	return name, nil
}

// newCommand builds the discovery invocation of the driver of protocol.
// A zero port selects the protocol default.
func newCommand(path, protocol, address string, port uint16) (*Command, error) {
	if port == 0 {
		port = defaultPorts[protocol]
	}
	target := net.JoinHostPort(address, strconv.Itoa(int(port)))

	cmd := &Command{Protocol: protocol, Path: path}
	switch protocol {
	case model.ProtocolSNMP:
		cmd.Args = []string{"-s", "discover", "-x", "port=" + target, "-d", "1"}
		cmd.StatePath = true
	case model.ProtocolXMLPDC:
		if !strings.HasPrefix(address, "http://") {
			target = "http://" + target
		}
		cmd.Args = []string{"-s", "discover", "-x", "port=" + target, "-d", "1"}
		cmd.StatePath = true
	case model.ProtocolPowercom:
		cmd.Args = []string{"-x", "port=" + target, "-d", "1"}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
	}
	return cmd, nil
}

func (c *Command) option(name, value string) {
	c.Args = append(c.Args, "-x", name+"="+value)
}

func (c *Command) env(name, value string) {
	c.Env = append(c.Env, name+"="+value)
}

// applyCredential adds the credential options understood by the driver.
// The XML driver takes no credential.
func (c *Command) applyCredential(cred config.Credential) error {
	switch c.Protocol {
	case model.ProtocolSNMP:
		switch cred.Type {
		case config.CredentialSNMPv3:
			c.applySNMPv3(cred)
		case config.CredentialSNMPv1:
			c.applyCommunity(cred.Community)
		default:
			return fmt.Errorf("%w: %s with %s", ErrUnsupportedCredential, cred.Type, c.Protocol)
		}
	case model.ProtocolPowercom:
		if cred.Type != config.CredentialUserPassword {
			return fmt.Errorf("%w: %s with %s", ErrUnsupportedCredential, cred.Type, c.Protocol)
		}
		c.option("username", cred.Username)
		c.option("password", cred.Password)
	}
	return nil
}

func (c *Command) applySNMPv3(cred config.Credential) {
	c.env("SU_VAR_VERSION", "v3")
	c.option("snmp_version", "v3")

	if cred.SecurityLevel != "" {
		c.env("SU_VAR_SECLEVEL", cred.SecurityLevel)
		c.option("secLevel", cred.SecurityLevel)
	}

	c.env("SU_VAR_SECNAME", cred.SecurityName)
	c.option("secName", cred.SecurityName)

	c.env("SU_VAR_AUTHPASSWD", cred.AuthPassword)
	c.option("authPassword", cred.AuthPassword)

	c.env("SU_VAR_PRIVPASSWD", cred.PrivPassword)
	c.option("privPassword", cred.PrivPassword)

	if cred.AuthProtocol != "" {
		prot := strings.ToUpper(cred.AuthProtocol)
		c.env("SU_VAR_AUTHPROT", prot)
		c.option("authProtocol", prot)
	}
	if cred.PrivProtocol != "" {
		prot := strings.ToUpper(cred.PrivProtocol)
		c.env("SU_VAR_PRIVPROT", prot)
		c.option("privProtocol", prot)
	}
}

func (c *Command) applyCommunity(community string) {
	c.env("SU_VAR_VERSION", "v1")
	c.env("SU_VAR_COMMUNITY", community)
	c.option("community", community)
}

// applySNMPTimeout sets the per-request timeout of snmp-ups in whole seconds.
func (c *Command) applySNMPTimeout(d time.Duration) {
	if c.Protocol != model.ProtocolSNMP || d < time.Second {
		return
	}
	secs := strconv.Itoa(int(d / time.Second))
	c.env("SU_VAR_TIMEOUT", secs)
	c.option("snmp_timeout", secs)
}

// applyMIBDir points snmp-ups at the MIB directory.
func (c *Command) applyMIBDir(dir string) {
	if c.Protocol != model.ProtocolSNMP || dir == "" {
		return
	}
	c.env("MIBDIRS", dir)
}
