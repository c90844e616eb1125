package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/stitch/internal/errs"
)

func writeTrack(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenSRT(t *testing.T) {
	path := writeTrack(t, "track.SRT", "1\n00:00:01,000 --> 00:00:02,000\nupper ext\n")

	cues, err := Open(path)
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "upper ext", cues[0].Text)
}

func TestOpenVTT(t *testing.T) {
	content := `WEBVTT
Kind: captions

NOTE this is ignored
across lines

1
00:00:01.000 --> 00:00:04.000
Hello, world!

2
00:00:05.500 --> 00:00:08.200 align:start
This is a test.
With multiple lines.

00:10.000 --> 00:12.500
No cue identifier.

00:00:13.000 --> 00:00:14.000
`
	path := writeTrack(t, "track.vtt", content)

	cues, err := Open(path)
	require.NoError(t, err)
	require.Len(t, cues, 3)

	assert.Equal(t, 1*time.Second, cues[0].Start)
	assert.Equal(t, "Hello, world!", cues[0].Text)
	assert.Equal(t, 8200*time.Millisecond, cues[1].End)
	assert.Equal(t, "This is a test.\nWith multiple lines.", cues[1].Text)
	assert.Equal(t, 10*time.Second, cues[2].Start)
	assert.Equal(t, "No cue identifier.", cues[2].Text)
}

func TestOpenVTTWithoutHeaderFails(t *testing.T) {
	path := writeTrack(t, "track.vtt", "00:00:01.000 --> 00:00:02.000\nhi\n")

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFormat))
}

func TestOpenASS(t *testing.T) {
	content := `[Script Info]
Title: Test Subtitles
ScriptType: v4.00+

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Arial,20,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
Comment: 0,0:00:00.00,0:00:01.00,Default,,0,0,0,,skipped
Dialogue: 0,0:00:01.00,0:00:04.00,Default,,0,0,0,,Hello, world!
Dialogue: 0,0:00:05.50,0:00:08.20,Default,,0,0,0,,{\pos(100,200)}This has positioning.
Dialogue: 0,0:00:10.00,0:00:12.50,Default,,0,0,0,,Line with\Nnewline.
`
	path := writeTrack(t, "track.ass", content)

	cues, err := Open(path)
	require.NoError(t, err)
	require.Len(t, cues, 3)

	assert.Equal(t, 1*time.Second, cues[0].Start)
	assert.Equal(t, "Hello, world!", cues[0].Text)
	assert.Equal(t, 5500*time.Millisecond, cues[1].Start)
	assert.Equal(t, "This has positioning.", cues[1].Text)
	assert.Equal(t, "Line with\nnewline.", cues[2].Text)
	assert.Equal(t, 12500*time.Millisecond, cues[2].End)
}

func TestOpenASSBadTimestamp(t *testing.T) {
	content := "[Events]\nFormat: Layer, Start, End, Text\nDialogue: 0,0:00:xx.00,0:00:04.00,broken\n"
	path := writeTrack(t, "track.ssa", content)

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFormat))
}

func TestOpenUnsupportedFormat(t *testing.T) {
	path := writeTrack(t, "track.txt", "test")

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFormat))
	assert.True(t, strings.Contains(err.Error(), "unsupported"))
}

func TestOpenWithoutExtensionReadsSRT(t *testing.T) {
	path := writeTrack(t, "track", "1\n00:00:01,000 --> 00:00:02,000\nhi\n")

	cues, err := Open(path)
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "hi", cues[0].Text)
}

func TestOpenMalformedSRTCarriesPath(t *testing.T) {
	path := writeTrack(t, "bad.srt", "1\nnot a timecode\ntext\n")

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindFormat))
	assert.Contains(t, err.Error(), path)
}
