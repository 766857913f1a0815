package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNameDeterministic(t *testing.T) {
	id := primitive.NewObjectID()
	assert.Equal(t, Name(id), Name(id))
	assert.Equal(t, "chat-"+id.Hex(), Name(id))
}

func TestNameDistinctGroupsDistinctRooms(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	assert.NotEqual(t, Name(a), Name(b))
}

func TestParseRoundTrip(t *testing.T) {
	id := primitive.NewObjectID()
	name, err := Parse(Name(id))
	require.NoError(t, err)
	assert.Equal(t, Name(id), name)
}

func TestParseRejectsBadTokens(t *testing.T) {
	for _, token := range []string{
		"",
		"not-a-room",
		"chat-",
		"chat-xyz",
		"chat-123",
		"room-" + primitive.NewObjectID().Hex(),
		primitive.NewObjectID().Hex(),
	} {
		_, err := Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}
