package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/stitch/internal/errs"
)

const timecodeSeparator = "-->"

var blankLineRun = regexp.MustCompile(`\n[ \t]*\n`)

// Parse reads SubRip text. Blocks are separated by blank lines; a block
// needs an index line, a timecode line and at least one text line, and
// shorter blocks are skipped. A bad timecode line fails the whole parse
// with a format error.
func Parse(text string) ([]Cue, error) {
	cues, err := parseSRT(text)
	if err != nil {
		return nil, errs.Format("parse srt", "", err)
	}
	return cues, nil
}

func parseSRT(text string) ([]Cue, error) {
	text = normalizeNewlines(text)
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var cues []Cue
	for blockNum, block := range blankLineRun.Split(text, -1) {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")
		if len(lines) < 3 {
			continue
		}

		start, end, err := parseTimecodeLine(lines[1], ParseTimestamp)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", blockNum+1, err)
		}

		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			index = len(cues) + 1
		}

		cues = append(cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return cues, nil
}

// splits "start --> end" and converts both sides with parse
func parseTimecodeLine(
	line string,
	parse func(string) (time.Duration, error),
) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, timecodeSeparator)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", errs.ErrMissingSeparator, line)
	}

	startField := strings.TrimSpace(parts[0])
	// cue settings may follow the end time
	endFields := strings.Fields(parts[1])
	if startField == "" || len(endFields) == 0 {
		return 0, 0, fmt.Errorf("incomplete timecode line %q", line)
	}

	start, err := parse(startField)
	if err != nil {
		return 0, 0, fmt.Errorf("start time: %w", err)
	}
	end, err := parse(endFields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("end time: %w", err)
	}
	return start, end, nil
}

// ParseTimestamp converts HH:MM:SS,mmm into a duration:
// H*3600 + M*60 + S seconds plus mmm milliseconds.
func ParseTimestamp(value string) (time.Duration, error) {
	clock, millis, ok := strings.Cut(strings.TrimSpace(value), ",")
	if !ok {
		return 0, fmt.Errorf("timestamp %q has no comma before milliseconds", value)
	}
	return clockDuration(value, clock, millis)
}

func clockDuration(value, clock, millis string) (time.Duration, error) {
	ms, err := strconv.ParseUint(millis, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: milliseconds are not numeric", value)
	}

	fields := strings.Split(clock, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("timestamp %q: expected HH:MM:SS", value)
	}
	var hms [3]uint64
	for i, field := range fields {
		n, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %q is not numeric", value, field)
		}
		hms[i] = n
	}

	return time.Duration(hms[0])*time.Hour +
		time.Duration(hms[1])*time.Minute +
		time.Duration(hms[2])*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
