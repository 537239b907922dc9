// Package logging собирает zerolog-логгер из конфигурации.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"balemuya/internal/config"

	"github.com/rs/zerolog"
)

// New строит логгер по настройкам: уровень, формат (json или console)
// и назначение (stdout, stderr или файл). Пустые поля дают JSON уровня
// info в stdout. Возвращенный io.Closer ненулевой только для файла.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	output, closer, err := resolveOutput(cfg)
	if err != nil {
		return nil, nil, err
	}

	if normalize(cfg.Format) == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(output).
		Level(resolveLevel(cfg.Level)).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &logger, closer, nil
}

func resolveLevel(raw string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(normalize(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return parsed
}

func resolveOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch normalize(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
