package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed means no JSON value could be recovered from model output.
var ErrParseFailed = errors.New("failed to parse response")

var fence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")

// Parse decodes model output into T. Models wrap JSON in prose or code
// fences, so Parse tries, in order: the whole text, the first fenced
// block, and the outermost {...} span.
func Parse[T any](content string) (T, error) {
	var out T
	content = strings.TrimSpace(content)

	candidates := []string{content}
	if m := fence.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.IndexByte(content, '{'), strings.LastIndexByte(content, '}'); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}

	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), &out); err == nil {
			return out, nil
		}
	}
	return out, fmt.Errorf("%w: %q", ErrParseFailed, Truncate(content, 200))
}
