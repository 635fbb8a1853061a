package exiftool

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BuildReadArgs returns the arguments for a JSON tag dump of path.
func BuildReadArgs(path string) []string {
	return []string{"-json", "-charset", "filename=utf8", path}
}

// BuildWriteArgs returns the arguments that write tags to path. -P keeps the
// filesystem modification time. Tag assignments are sorted so the argument
// list is deterministic.
func BuildWriteArgs(path string, tags map[string]string, mode WriteMode, extra ...string) []string {
	args := []string{"-P", "-charset", "filename=utf8"}
	if mode == Overwrite {
		args = append(args, "-overwrite_original")
	}
	args = append(args, extra...)

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, fmt.Sprintf("-%s=%s", name, tags[name]))
	}
	return append(args, path)
}

// parseJSONTags decodes exiftool -json output for a single file into tag
// name -> string value. Numbers and booleans are rendered as exiftool
// prints them; nested values are re-encoded as JSON.
func parseJSONTags(stdout string) (map[string]string, error) {
	var docs []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stdout), &docs); err != nil {
		return nil, fmt.Errorf("invalid exiftool json: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("exiftool returned no entries")
	}

	tags := make(map[string]string, len(docs[0]))
	for name, raw := range docs[0] {
		tags[name] = rawString(raw)
	}
	return tags, nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return string(raw)
}

// WriteSummary counts the outcome lines exiftool prints after a write.
type WriteSummary struct {
	Updated   int
	Unchanged int
	Failed    int
}

// parseWriteSummary reads lines such as
//
//	    1 image files updated
//	    1 files weren't updated due to errors
func parseWriteSummary(stdout string) WriteSummary {
	var sum WriteSummary
	sc := bufio.NewScanner(strings.NewReader(stdout))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		line := strings.Join(fields[1:], " ")
		switch {
		case strings.Contains(line, "due to errors"):
			sum.Failed += n
		case strings.HasSuffix(line, "unchanged"):
			sum.Unchanged += n
		case strings.HasSuffix(line, "updated"):
			sum.Updated += n
		}
	}
	return sum
}

// firstError returns the first "Error:" line exiftool wrote to stderr.
// Warnings are ignored.
func firstError(stderr string) string {
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Error") {
			return line
		}
	}
	return ""
}
