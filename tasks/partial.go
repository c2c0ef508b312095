package tasks

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Object and array parse states. Arrays only use expectKey (meaning "expect
// an element") and afterValue.
const (
	expectKey = iota
	inKey
	expectColon
	expectValue
	afterValue
)

type frame struct {
	kind  byte
	state int
}

// CompleteJSON closes a truncated JSON document so that it parses. Input
// that cannot be completed yet (a half-written key, literal or escape
// sequence) is cut off; a half-written string value is kept and closed.
// It returns "" when no value has started.
func CompleteJSON(s string) string {
	var (
		stack    []frame
		inString bool
		isKey    bool
		escape   int
		topDone  bool
		cut      = -1
		suffix   string
	)

	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}
		return &stack[len(stack)-1]
	}
	mark := func(pos int, open string) {
		b := []byte(open)
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].kind == '{' {
				b = append(b, '}')
			} else {
				b = append(b, ']')
			}
		}
		cut, suffix = pos, string(b)
	}
	valueDone := func() {
		if f := top(); f != nil {
			f.state = afterValue
		} else {
			topDone = true
		}
	}

scan:
	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escape == -1:
				escape = 0
				if c == 'u' {
					escape = 4
				}
			case escape > 0:
				escape--
			case c == '\\':
				escape = -1
			case c == '"':
				inString = false
				if isKey {
					top().state = expectColon
				} else {
					valueDone()
					mark(i+1, "")
				}
				continue
			}
			// Never split an escape sequence or a multi-byte rune.
			if !isKey && escape == 0 {
				if r, size := utf8.DecodeLastRuneInString(s[:i+1]); r != utf8.RuneError || size > 1 {
					mark(i+1, `"`)
				}
			}
			continue
		}

		switch c {
		case ' ', '\t', '\n', '\r':
		case '{', '[':
			if topDone {
				break scan
			}
			stack = append(stack, frame{kind: c, state: expectKey})
			mark(i+1, "")
		case '}', ']':
			if len(stack) == 0 {
				break scan
			}
			stack = stack[:len(stack)-1]
			valueDone()
			mark(i+1, "")
		case '"':
			if topDone {
				break scan
			}
			f := top()
			inString, escape = true, 0
			isKey = f != nil && f.kind == '{' && f.state == expectKey
			if isKey {
				f.state = inKey
			} else {
				mark(i+1, `"`)
			}
		case ':':
			if f := top(); f != nil && f.kind == '{' {
				f.state = expectValue
			}
		case ',':
			if f := top(); f != nil {
				f.state = expectKey
			}
		default:
			if topDone {
				break scan
			}
			j := i
			for j < len(s) && !strings.ContainsRune(" \t\n\r,:]}", rune(s[j])) {
				j++
			}
			// Literals and numbers are only kept once they are valid.
			if json.Valid([]byte(s[i:j])) {
				valueDone()
				mark(j, "")
			}
			i = j - 1
		}
	}

	if cut < 0 {
		return ""
	}
	return s[:cut] + suffix
}

// ParsePartial decodes as much of a streamed TaskList as has arrived. The
// last task may be incomplete.
func ParsePartial(text string) (TaskList, error) {
	var list TaskList
	completed := CompleteJSON(text)
	if completed == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(completed), &list); err != nil {
		return list, fmt.Errorf("failed to parse partial tasks: %w", err)
	}
	return list, nil
}
