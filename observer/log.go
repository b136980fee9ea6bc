package observer

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Log turns notifications into structured log events. Prompts and model
// output are logged at trace level, tool activity at debug, the final
// answer at info.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a logging observer.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) PromptSent(prompt string) {
	l.logger.Trace().Int("chars", len(prompt)).Str("prompt", prompt).Msg("prompt sent")
}

func (l *Log) ModelOutput(output string) {
	l.logger.Trace().Str("output", output).Msg("model output")
}

func (l *Log) ToolStarted(name, input string) {
	event := l.logger.Debug().Str("tool", name)
	if json.Valid([]byte(input)) {
		event = event.RawJSON("input", []byte(input))
	} else {
		event = event.Str("input", input)
	}
	event.Msg("tool started")
}

func (l *Log) ToolFinished(output string) {
	l.logger.Debug().Str("output", output).Msg("tool finished")
}

func (l *Log) Finished(final string) {
	l.logger.Info().Str("answer", final).Msg("run finished")
}

var _ Observer = (*Log)(nil)
