package logging_test

import (
	"context"
	"testing"

	"github.com/dartmouth/accountsync/pkg/logging"
	"github.com/stretchr/testify/assert"
)

func TestContextFunctions(t *testing.T) {
	t.Run("WithAccount adds account to context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithAccount(ctx, "d36616b")

		// Extract logger and verify it has the account field
		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("WithSystem adds system to context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithSystem(ctx, "planon")

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("WithOperation adds operation to context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithOperation(ctx, "fetch_accounts")

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("WithPass adds pass to context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithPass(ctx, "insert")

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("WithFields adds custom fields to context", func(t *testing.T) {
		ctx := context.Background()
		fields := map[string]interface{}{
			"user_id":    "123",
			"request_id": "abc-def",
		}
		ctx = logging.WithFields(ctx, fields)

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("FromContext returns logger from context", func(t *testing.T) {
		ctx := context.Background()

		// First call should create a new logger
		logger1 := logging.FromContext(ctx)
		assert.NotNil(t, logger1)

		// Add account and get logger again
		ctx = logging.WithAccount(ctx, "jdoe")
		logger2 := logging.FromContext(ctx)
		assert.NotNil(t, logger2)
	})

	t.Run("Ctx extracts logger from context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithAccount(ctx, "jdoe")

		logger := logging.Ctx(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("chaining context functions", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithAccount(ctx, "d36616b")
		ctx = logging.WithSystem(ctx, "planon")
		ctx = logging.WithOperation(ctx, "create_account")
		ctx = logging.WithPass(ctx, "insert")

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})
}
