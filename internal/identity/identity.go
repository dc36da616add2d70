// Package identity carries the opaque caller identity supplied by the outer
// authentication layer. The agents only read ID for record attribution and
// DisplayName for greetings.
package identity

import (
	"os/user"
	"strings"
)

type Identity struct {
	ID          string
	DisplayName string
}

// Resolve builds an identity from configured values, falling back to the
// current OS user when nothing is configured.
func Resolve(id, displayName string) Identity {
	id = strings.TrimSpace(id)
	displayName = strings.TrimSpace(displayName)

	if id == "" {
		if current, err := user.Current(); err == nil {
			id = current.Username
			if displayName == "" {
				displayName = current.Name
			}
		}
	}

	if id == "" {
		id = "anonymous"
	}

	return Identity{ID: id, DisplayName: displayName}
}
