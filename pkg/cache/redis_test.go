package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktime/worktime-backend/pkg/config"
	"github.com/worktime/worktime-backend/pkg/logger"
)

func TestNew_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.RedisConfig{Enabled: false}, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestHealth(t *testing.T) {
	assert.Equal(t, "disabled", Health(context.Background(), nil)["status"])

	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")
	assert.Equal(t, "healthy", Health(context.Background(), client)["status"])

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	status := Health(context.Background(), client)
	assert.Equal(t, "unhealthy", status["status"])
	assert.Equal(t, "connection refused", status["error"])

	assert.NoError(t, mock.ExpectationsWereMet())
}
