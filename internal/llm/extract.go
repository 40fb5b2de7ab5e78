package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoObject = errors.New("no JSON object in response")

// cleanMarkdownWrapper removes a ```json or ``` fence around content.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if nl := strings.IndexByte(content, '\n'); nl >= 0 && !strings.HasPrefix(strings.TrimSpace(content[:nl]), "{") {
			content = content[nl+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}

// extractObject returns the text from the first '{' to the last '}'.
func extractObject(content string) (string, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return "", errNoObject
	}
	return content[start : end+1], nil
}

// decodeObject decodes a model answer into a generic map. Strict JSON is tried
// first, then a Python-literal rewrite of the same text. Numbers are kept as
// json.Number so the filter normalizer can tell integers from fractions.
func decodeObject(content string) (map[string]any, error) {
	object, err := extractObject(cleanMarkdownWrapper(content))
	if err != nil {
		return nil, err
	}

	raw, err := decodeJSON(object)
	if err == nil {
		return raw, nil
	}

	converted, convErr := pythonLiteralToJSON(object)
	if convErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	raw, convErr = decodeJSON(converted)
	if convErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return raw, nil
}

func decodeJSON(object string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(object))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNoObject
	}
	return raw, nil
}

// pythonLiteralToJSON rewrites a Python dict literal into JSON. It handles
// single-quoted strings, True/False/None and trailing commas. Anything else
// outside a string is copied unchanged and left for the JSON decoder to judge.
// Nothing is ever evaluated.
func pythonLiteralToJSON(src string) (string, error) {
	var out bytes.Buffer
	out.Grow(len(src))

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\'' || c == '"':
			s, n, err := readQuoted(src[i:], c)
			if err != nil {
				return "", err
			}
			quoted, err := json.Marshal(s)
			if err != nil {
				return "", err
			}
			out.Write(quoted)
			i += n
		case c == ',':
			j := skipSpace(src, i+1)
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				i++
				continue
			}
			out.WriteByte(c)
			i++
		case isIdentStart(c):
			j := i
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			switch word := src[i:j]; word {
			case "True":
				out.WriteString("true")
			case "False":
				out.WriteString("false")
			case "None":
				out.WriteString("null")
			default:
				out.WriteString(word)
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String(), nil
}

// readQuoted reads a string literal delimited by quote and returns its value
// and the number of bytes consumed.
func readQuoted(src string, quote byte) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(src); i++ {
		c := src[i]
		switch c {
		case quote:
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(src) {
				return "", 0, fmt.Errorf("unterminated escape")
			}
			i++
			switch e := src[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\n' || s[i] == '\t' || s[i] == '\r') {
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
