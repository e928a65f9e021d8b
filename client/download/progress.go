package download

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// progressWriter logs output progress at most once per second. Percentages
// are omitted when the body length is unknown.
type progressWriter struct {
	w         io.Writer
	logger    *slog.Logger
	written   int64
	total     int64
	startTime time.Time
	lastLog   time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written += int64(n)

	if time.Since(pw.lastLog) >= time.Second {
		pw.lastLog = time.Now()
		pw.log("writing output")
	}

	if pw.total >= 0 && pw.written == pw.total {
		pw.log("output complete")
	}

	return n, err
}

func (pw *progressWriter) log(msg string) {
	elapsed := time.Since(pw.startTime)

	attrs := []any{
		"elapsed", elapsed.Round(time.Millisecond),
		"written", pw.written,
	}
	if pw.total > 0 {
		attrs = append(attrs,
			"total", pw.total,
			"progress", fmt.Sprintf("%.1f%%", float64(pw.written)/float64(pw.total)*100),
		)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		attrs = append(attrs, "mbps", fmt.Sprintf("%.2f", float64(pw.written)/secs/(1024*1024)))
	}

	pw.logger.Info(msg, attrs...)
}
