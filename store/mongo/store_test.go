package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xraph/pandda/store"
	"github.com/xraph/pandda/store/mongo"
	"github.com/xraph/pandda/store/storetest"
)

// newStore connects to PANDDA_TEST_MONGO_URI and gives each test a fresh
// database that is dropped afterwards.
func newStore(t *testing.T) store.Store {
	t.Helper()
	uri := os.Getenv("PANDDA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PANDDA_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := mongo.Open(uri, "pandda_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.DB().Drop(context.Background())
		_ = s.Close()
	})
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, newStore)
}
