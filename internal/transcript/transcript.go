package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// FilenameLayout is the sortable timestamp embedded in artifact names
	FilenameLayout = "2006-01-02_15-04-05"
	// HeaderLayout is the capture time printed in the artifact header
	HeaderLayout = "2006-01-02 15:04:05"

	filenamePrefix = "teams_chat_"
	filenameExt    = ".txt"
)

var (
	headerRule  = strings.Repeat("-", 40)
	messageRule = strings.Repeat("-", 20)
)

// Message is one extracted chat message
type Message struct {
	Author    string
	Timestamp string // verbatim as displayed, not parsed
	Body      string
}

// Header describes where and when a transcript was captured
type Header struct {
	Title      string
	CapturedAt time.Time
}

// Filename returns the artifact name for a capture at t
func Filename(t time.Time) string {
	return filenamePrefix + t.Format(FilenameLayout) + filenameExt
}

// Write renders the header followed by one block per message
func Write(w io.Writer, h Header, messages []Message) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Scraped from: %s\n", h.Title)
	fmt.Fprintf(bw, "Timestamp: %s\n", h.CapturedAt.Format(HeaderLayout))
	fmt.Fprintf(bw, "%s\n\n", headerRule)

	for _, m := range messages {
		fmt.Fprintf(bw, "[%s] %s:\n", m.Timestamp, m.Author)
		fmt.Fprintf(bw, "%s\n", m.Body)
		fmt.Fprintf(bw, "%s\n", messageRule)
	}

	return bw.Flush()
}

// CountBlocks returns how many message blocks a rendered transcript holds
func CountBlocks(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		if scanner.Text() == messageRule {
			n++
		}
	}
	return n, scanner.Err()
}
