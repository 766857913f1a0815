// Package room derives real-time channel names from chat group identities.
// The mapping is pure: one group maps to exactly one room and the name is
// computed, never stored or looked up.
package room

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Prefix is the fixed textual prefix of every room name. Clients must
// reproduce Prefix + groupID hex to compute the channel for a known group.
const Prefix = "chat-"

var ErrInvalidToken = errors.New("invalid room token")

// Name returns the broadcast channel name for a group identity.
func Name(groupID primitive.ObjectID) string {
	return Prefix + groupID.Hex()
}

// Parse validates a caller-supplied room token and returns its canonical
// form. Tokens that do not consist of the fixed prefix plus a syntactically
// valid group identifier are rejected; the subscription layer never lets
// arbitrary tokens create new semantic channels.
func Parse(token string) (string, error) {
	if !strings.HasPrefix(token, Prefix) {
		return "", ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(token, Prefix))
	if err != nil {
		return "", ErrInvalidToken
	}
	return Name(id), nil
}
