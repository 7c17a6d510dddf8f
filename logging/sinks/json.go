package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Carolmelon/threejs-game-network/logging"
)

// JSONSink appends one JSON object per line to a file. Used for session and
// chat audit trails that outlive the console scrollback.
type JSONSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func NewJSONSink(cfg logging.JSONConfig) (*JSONSink, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("json sink requires a file path")
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open json log: %w", err)
	}
	return &JSONSink{file: file, enc: json.NewEncoder(file)}, nil
}

func (s *JSONSink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.enc.Encode(event)
}

func (s *JSONSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
