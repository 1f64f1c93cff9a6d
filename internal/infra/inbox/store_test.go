package inbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestSeen(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("first delivery", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewStore(mt.DB, "u1")

		seen, err := store.Seen(context.Background(), "newMessage:m1")
		require.NoError(mt, err)
		assert.False(mt, seen)
	})

	mt.Run("redelivery", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))
		store := NewStore(mt.DB, "u1")

		seen, err := store.Seen(context.Background(), "newMessage:m1")
		require.NoError(mt, err)
		assert.True(mt, seen)
	})

	mt.Run("server failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
			Name:    "BadValue",
		}))
		store := NewStore(mt.DB, "u1")

		_, err := store.Seen(context.Background(), "newMessage:m2")
		assert.Error(mt, err)
	})
}
