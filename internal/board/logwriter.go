package board

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// LogWriter is a zerolog output that captures each JSON line into the
// board's log ring, so the dashboard can show logs without them being
// printed under the alternate screen.
type LogWriter struct {
	board *Board
}

// NewLogWriter returns a LogWriter feeding b.
func NewLogWriter(b *Board) *LogWriter {
	return &LogWriter{board: b}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.board.AddLog(parseLogLine(p))
	return len(p), nil
}

func parseLogLine(p []byte) LogEntry {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return LogEntry{Time: time.Now(), Level: zerolog.InfoLevel.String(), Message: string(p)}
	}

	entry := LogEntry{Time: time.Now(), Fields: make(map[string]string)}
	for k, v := range raw {
		switch k {
		case zerolog.LevelFieldName:
			entry.Level, _ = v.(string)
		case zerolog.MessageFieldName:
			entry.Message, _ = v.(string)
		case zerolog.TimestampFieldName:
			if s, ok := v.(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					entry.Time = t
				}
			}
		default:
			switch val := v.(type) {
			case string:
				entry.Fields[k] = val
			case float64, bool:
				entry.Fields[k] = fmt.Sprint(val)
			}
		}
	}
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}
	return entry
}

var _ io.Writer = (*LogWriter)(nil)
