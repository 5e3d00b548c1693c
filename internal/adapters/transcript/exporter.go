// Package transcript renders a ticket thread's history to a plain-text file.
package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/modmail/internal/ports/secondary"
)

const timestampLayout = "2006-01-02 15:04:05"

// HistorySource provides a thread's message history, oldest first.
type HistorySource interface {
	ThreadHistory(ctx context.Context, threadID string) ([]secondary.ThreadHistoryMessage, error)
}

// FileExporter implements secondary.TranscriptExporter by writing one text
// file per thread under a fixed directory.
type FileExporter struct {
	history HistorySource
	dir     string
}

// NewFileExporter creates a new FileExporter writing into dir.
func NewFileExporter(history HistorySource, dir string) *FileExporter {
	return &FileExporter{history: history, dir: dir}
}

// Export fetches the thread's history and writes the transcript file,
// returning its path.
func (e *FileExporter) Export(ctx context.Context, threadID string) (string, error) {
	messages, err := e.history.ThreadHistory(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch thread history: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create transcripts directory: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("transcript_%s.txt", threadID))
	if err := os.WriteFile(path, []byte(Render(messages)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}

// Render formats messages as one line each:
//
//	[2006-01-02 15:04:05] author (id): content
//
// Messages with no text but an attachment get an "[attachment]" placeholder.
func Render(messages []secondary.ThreadHistoryMessage) string {
	var b strings.Builder
	for _, m := range messages {
		content := m.Content
		if content == "" && m.HasAttachment {
			content = "[attachment]"
		}
		fmt.Fprintf(&b, "[%s] %s (%s): %s\n",
			m.Timestamp.Format(timestampLayout), m.AuthorTag, m.AuthorID, content)
	}
	return b.String()
}

// Ensure FileExporter implements the interface.
var _ secondary.TranscriptExporter = (*FileExporter)(nil)
