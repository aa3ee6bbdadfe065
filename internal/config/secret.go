package config

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// Secret holds a sensitive string. Every formatting and encoding path renders
// it as [REDACTED]; Expose is the only way to read the value back.
type Secret struct {
	value string
}

func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Expose returns the raw value. Call it only where the value leaves the
// process, e.g. when handing a DSN to the driver.
func (s Secret) Expose() string {
	return s.value
}

func (s Secret) IsEmpty() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return "config.Secret(" + redacted + ")"
}

// Format covers verbs like %d and %x that bypass String.
func (s Secret) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = io.WriteString(f, s.GoString())
		return
	}
	_, _ = io.WriteString(f, redacted)
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

func (s Secret) MarshalYAML() (interface{}, error) {
	return redacted, nil
}

func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode secret: line %d", node.Line)
	}
	s.value = raw
	return nil
}

// Decode lets envdecode populate a Secret from the environment.
func (s *Secret) Decode(raw string) error {
	s.value = raw
	return nil
}
