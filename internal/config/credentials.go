package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ErrMissingField is returned when the credential file lacks a required key.
var ErrMissingField = errors.New("missing required field")

// Credentials are the SFTP login details read from the credential file.
type Credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"passwd"`
}

var credentialFields = []string{"host", "port", "user", "passwd"}

// LoadCredentials reads a JSON credential file. Every field must be present.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials %s: %w", path, err)
	}
	for _, field := range credentialFields {
		if _, ok := raw[field]; !ok {
			return Credentials{}, fmt.Errorf("%s: %w: %s", path, ErrMissingField, field)
		}
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials %s: %w", path, err)
	}
	return creds, nil
}

// Address returns host:port
func (c Credentials) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String never includes the password
func (c Credentials) String() string {
	return c.User + "@" + c.Address()
}
