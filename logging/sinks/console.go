package sinks

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"

	"github.com/Carolmelon/threejs-game-network/logging"
)

type ConsoleSink struct {
	logger *log.Logger
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(event.Type))
	b.WriteString("] severity=")
	b.WriteString(event.Severity.String())
	if event.Session != "" {
		b.WriteString(" session=")
		b.WriteString(event.Session)
	}
	if event.Category != "" {
		b.WriteString(" category=")
		b.WriteString(event.Category)
	}
	if payload := formatPayload(event.Payload); payload != "" {
		b.WriteString(" payload=")
		b.WriteString(payload)
	}
	s.logger.Print(b.String())
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "<unencodable>"
	}
	return string(data)
}
