package logging

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ronappleton/flowdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSinkShipsEntries(t *testing.T) {
	var (
		mu       sync.Mutex
		received []sinkEntry
		auth     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/logs", r.URL.Path)
		var entry sinkEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			t.Error(err)
			return
		}
		mu.Lock()
		received = append(received, entry)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := newSinkSender(srv.URL+"/", "key", "flowdesk")
	sender.start()
	logger := attachSink(zap.NewNop(), sender).With(zap.String("business_id", "biz1"))

	logger.Debug("below threshold")
	logger.Info("workflow created", zap.String("workflow_id", "wf_1"))
	sender.stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "workflow created", received[0].Message)
	assert.Equal(t, "info", received[0].Level)
	assert.Equal(t, "flowdesk", received[0].Source)
	assert.Equal(t, map[string]string{"business_id": "biz1", "workflow_id": "wf_1"}, received[0].Metadata)
	assert.Equal(t, "Bearer key", auth)
}

func TestSinkDropsAfterStop(t *testing.T) {
	sender := newSinkSender("http://127.0.0.1:0", "", "flowdesk")
	sender.start()
	sender.stop()
	logger := attachSink(zap.NewNop(), sender)
	assert.NotPanics(t, func() { logger.Info("late entry") })
}

func TestBuildRejectsUnknownLevel(t *testing.T) {
	_, err := Build(config.LoggingConfig{Level: "chatty"})
	assert.Error(t, err)

	logger, err := Build(config.LoggingConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
