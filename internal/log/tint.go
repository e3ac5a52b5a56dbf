package log

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

func tintHandler(w io.Writer) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	})
}
