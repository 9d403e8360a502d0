package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type sinkEntry struct {
	Source   string            `json:"source"`
	Level    string            `json:"level"`
	Message  string            `json:"message"`
	Logger   string            `json:"logger,omitempty"`
	Time     time.Time         `json:"time"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// sinkSender ships log entries to a remote collector. Entries are dropped
// when the buffer is full so logging never blocks a request.
type sinkSender struct {
	baseURL string
	apiKey  string
	source  string
	client  *http.Client
	ch      chan sinkEntry

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

func newSinkSender(baseURL, apiKey, source string) *sinkSender {
	return &sinkSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		source:  source,
		client:  &http.Client{Timeout: 3 * time.Second},
		ch:      make(chan sinkEntry, 200),
		done:    make(chan struct{}),
	}
}

func (s *sinkSender) start() {
	s.startOnce.Do(func() {
		go func() {
			defer close(s.done)
			for entry := range s.ch {
				s.post(entry)
			}
		}()
	})
}

// stop drains what is already buffered, then returns.
func (s *sinkSender) stop() {
	s.stopOnce.Do(func() {
		close(s.ch)
	})
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
	}
}

func (s *sinkSender) post(entry sinkEntry) {
	body, err := json.Marshal(entry)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/v1/logs", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}

func (s *sinkSender) offer(entry sinkEntry) {
	defer func() {
		// Sending on a closed channel after stop.
		_ = recover()
	}()
	select {
	case s.ch <- entry:
	default:
	}
}

func attachSink(logger *zap.Logger, sender *sinkSender) *zap.Logger {
	sink := &sinkCore{
		level:  zapcore.InfoLevel,
		sender: sender,
	}
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, sink)
	}))
}

type sinkCore struct {
	level  zapcore.LevelEnabler
	fields []zapcore.Field
	sender *sinkSender
}

func (c *sinkCore) Enabled(level zapcore.Level) bool {
	return c.level.Enabled(level)
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *sinkCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *sinkCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	metadata := make(map[string]string, len(enc.Fields))
	for k, v := range enc.Fields {
		metadata[k] = fmt.Sprint(v)
	}
	c.sender.offer(sinkEntry{
		Source:   c.sender.source,
		Level:    entry.Level.String(),
		Message:  entry.Message,
		Logger:   entry.LoggerName,
		Time:     entry.Time.UTC(),
		Metadata: metadata,
	})
	return nil
}

func (c *sinkCore) Sync() error { return nil }
