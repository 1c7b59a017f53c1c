package transcribe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractText pulls the transcription text out of a JSON response body.
// textPath is a dot-separated path with optional array indexes, e.g.
// "results[0].alternatives[0].transcript". When the path yields nothing the
// extractor falls back to a top-level "text" field, then to the first
// non-empty string value.
func ExtractText(body []byte, textPath string) string {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return ""
	}

	if textPath != "" {
		if v, ok := lookupPath(root, textPath); ok {
			return v
		}
	}

	m, ok := root.(map[string]interface{})
	if !ok {
		return ""
	}
	if v, exists := m["text"]; exists {
		if s, ok := scalarString(v); ok {
			return s
		}
	}
	for _, val := range m {
		if s, ok := val.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func lookupPath(root interface{}, path string) (string, bool) {
	cur := root
	for _, token := range strings.Split(path, ".") {
		key, idxs, err := splitToken(token)
		if err != nil {
			return "", false
		}
		if key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return "", false
			}
			next, exists := m[key]
			if !exists {
				return "", false
			}
			cur = next
		}
		for _, idx := range idxs {
			arr, ok := cur.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return "", false
			}
			cur = arr[idx]
		}
	}
	return scalarString(cur)
}

func scalarString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s)), true
		}
		return fmt.Sprintf("%v", s), true
	case bool:
		return fmt.Sprintf("%v", s), true
	default:
		return "", false
	}
}

// splitToken parses a path token like "foo[0][1]", "[2]" or "bar" into its
// base key and index list.
func splitToken(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty path token")
	}
	br := strings.Index(token, "[")
	if br == -1 {
		return token, nil, nil
	}
	key := token[:br]
	rest := token[br:]
	var idxs []int
	for len(rest) > 0 {
		if !strings.HasPrefix(rest, "[") {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		closePos := strings.Index(rest, "]")
		if closePos == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		n, err := strconv.Atoi(rest[1:closePos])
		if err != nil {
			return "", nil, fmt.Errorf("invalid index %q in %s", rest[1:closePos], token)
		}
		idxs = append(idxs, n)
		rest = rest[closePos+1:]
	}
	return key, idxs, nil
}
