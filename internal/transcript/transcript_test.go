package transcript

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)
	assert.Equal(t, "teams_chat_2024-03-09_07-05-02.txt", Filename(at))

	// Names sort chronologically and differ once a second has passed.
	later := Filename(at.Add(time.Second))
	assert.NotEqual(t, Filename(at), later)
	assert.Less(t, Filename(at), later)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Title: "Chat | Microsoft Teams", CapturedAt: time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)}
	messages := []Message{
		{Author: "Ada", Timestamp: "Yesterday 10:14", Body: "hello"},
		{Author: "Grace", Timestamp: "10:15", Body: "first line\nsecond line"},
	}

	require.NoError(t, Write(&buf, h, messages))

	want := strings.Join([]string{
		"Scraped from: Chat | Microsoft Teams",
		"Timestamp: 2024-03-09 07:05:02",
		strings.Repeat("-", 40),
		"",
		"[Yesterday 10:14] Ada:",
		"hello",
		strings.Repeat("-", 20),
		"[10:15] Grace:",
		"first line",
		"second line",
		strings.Repeat("-", 20),
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())

	n, err := CountBlocks(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriteHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Header{Title: "Empty"}, nil))

	n, err := CountBlocks(&buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}
