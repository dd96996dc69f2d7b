package utils

import (
	"fmt"
	"log"
	"os"
	"time"
)

// ImportLog appends free-text lines to the archive's import log. Logging is
// advisory: a failed append is reported to the server log but never fails
// the import that triggered it.
type ImportLog struct {
	path string
}

func NewImportLog(path string) *ImportLog {
	return &ImportLog{path: path}
}

// Append writes one timestamped line to the log file.
func (il *ImportLog) Append(format string, args ...interface{}) {
	unlock := LockPath(il.path)
	defer unlock()

	f, err := os.OpenFile(il.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("importlog: failed to open %s: %v", il.path, err)
		return
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
	if _, err := f.WriteString(line); err != nil {
		log.Printf("importlog: failed to append to %s: %v", il.path, err)
	}
}
