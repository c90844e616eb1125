package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/stitch/internal/errs"
)

var assOverrideTags = regexp.MustCompile(`\{[^}]*\}`)

// ParseASS reads the [Events] section of an ASS/SSA script. Override tags
// are stripped and \N / \n become line breaks; styling is not carried over
// since every cue is drawn in the same fixed style.
func ParseASS(text string) ([]Cue, error) {
	cues, err := parseASS(text)
	if err != nil {
		return nil, errs.Format("parse ass", "", err)
	}
	return cues, nil
}

func parseASS(text string) ([]Cue, error) {
	lines := strings.Split(strings.TrimPrefix(normalizeNewlines(text), "\ufeff"), "\n")

	var (
		cues       []Cue
		inEvents   bool
		startCol   = -1
		endCol     = -1
		textCol    = -1
		numColumns int
	)

	for lineNum, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inEvents = strings.EqualFold(trimmed, "[events]")
			continue
		}
		if !inEvents {
			continue
		}

		if rest, ok := strings.CutPrefix(trimmed, "Format:"); ok {
			columns := strings.Split(rest, ",")
			numColumns = len(columns)
			for i, col := range columns {
				switch strings.ToLower(strings.TrimSpace(col)) {
				case "start":
					startCol = i
				case "end":
					endCol = i
				case "text":
					textCol = i
				}
			}
			if startCol < 0 || endCol < 0 || textCol != numColumns-1 {
				return nil, fmt.Errorf("line %d: Format needs Start, End and a trailing Text column", lineNum+1)
			}
			continue
		}

		rest, ok := strings.CutPrefix(trimmed, "Dialogue:")
		if !ok {
			continue
		}
		if numColumns == 0 {
			return nil, fmt.Errorf("line %d: Dialogue before Format", lineNum+1)
		}

		// the text column may itself contain commas
		fields := strings.SplitN(rest, ",", numColumns)
		if len(fields) != numColumns {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", lineNum+1, numColumns, len(fields))
		}

		start, err := parseASSTimestamp(fields[startCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: start time: %w", lineNum+1, err)
		}
		end, err := parseASSTimestamp(fields[endCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: end time: %w", lineNum+1, err)
		}

		body := assOverrideTags.ReplaceAllString(fields[textCol], "")
		body = strings.NewReplacer(`\N`, "\n", `\n`, "\n", `\h`, " ").Replace(body)
		if strings.TrimSpace(body) == "" {
			continue
		}

		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: start,
			End:   end,
			Text:  body,
		})
	}
	return cues, nil
}

// H:MM:SS.cc (centiseconds)
func parseASSTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	clock, frac, ok := strings.Cut(value, ".")
	if !ok {
		return 0, fmt.Errorf("timestamp %q has no fractional part", value)
	}
	cs, err := strconv.ParseUint(frac, 10, 32)
	if err != nil || len(frac) != 2 {
		return 0, fmt.Errorf("timestamp %q: centiseconds are not numeric", value)
	}
	d, err := clockDuration(value, clock, "0")
	if err != nil {
		return 0, err
	}
	return d + time.Duration(cs)*10*time.Millisecond, nil
}
