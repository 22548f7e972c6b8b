/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/leoloveisme/crowdly-sub001/internal/domain"
)

var (
	reTitleKey  = regexp.MustCompile(`^([A-Za-z][A-Za-z ]{0,29}):\s*(.*)$`)
	rePageBreak = regexp.MustCompile(`^={3,}$`)
)

// ParseFountain parses Fountain screenplay text.
// Supported syntax:
//   - Title page: "Key: value" lines at the very top, indented continuation
//     lines, ended by a blank line and optionally a "===" line.
//   - Boneyard /* ... */ and notes [[ ... ]] are removed, also across lines.
//   - Force markers: ".SLUG" scene heading, "!" action, "@" character,
//     ">" transition (">centered<" is action), "~" lyrics (action).
//   - "=" synopsis lines and "===" page breaks are dropped.
//   - Anything else goes through Classify with the running context.
//
// The returned errors are warnings; the screenplay is always usable.
func ParseFountain(input string) (domain.Screenplay, []Error) {
	var sp domain.Screenplay
	input = strings.TrimPrefix(input, "\ufeff")
	input = strings.ReplaceAll(input, "\r\n", "\n")
	body, errs := suppress(input)

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: len(lines) + 1, Column: 1, Message: err.Error()})
	}
	var start int
	sp.TitlePage, start = parseTitlePage(lines)

	var sc Scanner
	for _, raw := range lines[start:] {
		trim := strings.TrimSpace(raw)
		if trim == "" {
			sc.Reset()
			continue
		}
		if rePageBreak.MatchString(trim) {
			continue
		}
		// synopsis
		if strings.HasPrefix(trim, "=") {
			continue
		}
		switch {
		case strings.HasPrefix(trim, ".") && !strings.HasPrefix(trim, ".."):
			sc.Emit(domain.ElementSceneHeading, upper(strings.TrimSpace(trim[1:])))
		case strings.HasPrefix(trim, "!"):
			sc.Emit(domain.ElementAction, strings.TrimSpace(trim[1:]))
		case strings.HasPrefix(trim, "@"):
			sc.Emit(domain.ElementCharacter, strings.TrimSpace(trim[1:]))
		case strings.HasPrefix(trim, "~"):
			sc.Emit(domain.ElementAction, strings.TrimSpace(trim[1:]))
		case strings.HasPrefix(trim, ">") && strings.HasSuffix(trim, "<"):
			sc.Emit(domain.ElementAction, strings.TrimSpace(trim[1:len(trim)-1]))
		case strings.HasPrefix(trim, ">"):
			sc.Emit(domain.ElementTransition, strings.TrimSpace(trim[1:]))
		default:
			sc.Line(trim)
		}
	}
	sp.Blocks = sc.Blocks()
	return sp, errs
}

// parseTitlePage reads the key/value block at the top of lines. It returns
// the fields and the index of the first body line.
func parseTitlePage(lines []string) ([]domain.TitleField, int) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) || !reTitleKey.MatchString(lines[i]) || IsSlugline(lines[i]) {
		return nil, 0
	}
	var fields []domain.TitleField
	for ; i < len(lines); i++ {
		raw := lines[i]
		if strings.TrimSpace(raw) == "" {
			break
		}
		if m := reTitleKey.FindStringSubmatch(raw); m != nil && !startsIndented(raw) {
			fields = append(fields, domain.TitleField{Key: strings.TrimSpace(m[1]), Value: strings.TrimSpace(m[2])})
			continue
		}
		if startsIndented(raw) && len(fields) > 0 {
			f := &fields[len(fields)-1]
			if f.Value == "" {
				f.Value = strings.TrimSpace(raw)
			} else {
				f.Value += "\n" + strings.TrimSpace(raw)
			}
			continue
		}
		// not a title page after all
		return nil, 0
	}
	// skip blank lines and an optional === separator
	j := i
	for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
		j++
	}
	if j < len(lines) && rePageBreak.MatchString(strings.TrimSpace(lines[j])) {
		i = j + 1
	}
	return fields, i
}

func startsIndented(s string) bool {
	return strings.HasPrefix(s, "\t") || strings.HasPrefix(s, "   ")
}

// suppress blanks out boneyard and note regions while keeping line breaks so
// that line numbers stay stable. An unterminated region runs to the end of
// input and is reported.
func suppress(in string) (string, []Error) {
	var out strings.Builder
	out.Grow(len(in))
	var errs []Error
	line := 1
	for i := 0; i < len(in); {
		var closer string
		switch {
		case strings.HasPrefix(in[i:], "/*"):
			closer = "*/"
		case strings.HasPrefix(in[i:], "[["):
			closer = "]]"
		}
		if closer == "" {
			if in[i] == '\n' {
				line++
			}
			out.WriteByte(in[i])
			i++
			continue
		}
		startLine := line
		end := strings.Index(in[i+2:], closer)
		var region string
		if end < 0 {
			region = in[i:]
			errs = append(errs, Error{Line: startLine, Column: 1, Message: "unterminated " + openerName(closer)})
			i = len(in)
		} else {
			region = in[i : i+2+end+2]
			i += 2 + end + 2
		}
		n := strings.Count(region, "\n")
		line += n
		out.WriteString(strings.Repeat("\n", n))
	}
	return out.String(), errs
}

func openerName(closer string) string {
	if closer == "*/" {
		return "boneyard"
	}
	return "note"
}

// CommentFilter removes boneyard and note regions from a sequence of text
// chunks, such as the paragraphs of an FDX body. A region left open in one
// chunk swallows the following chunks until it is closed.
type CommentFilter struct {
	closer string
}

// Filter returns chunk with every comment region removed.
func (f *CommentFilter) Filter(chunk string) string {
	var out strings.Builder
	for i := 0; i < len(chunk); {
		if f.closer != "" {
			end := strings.Index(chunk[i:], f.closer)
			if end < 0 {
				break
			}
			i += end + len(f.closer)
			f.closer = ""
			continue
		}
		switch {
		case strings.HasPrefix(chunk[i:], "/*"):
			f.closer = "*/"
			i += 2
		case strings.HasPrefix(chunk[i:], "[["):
			f.closer = "]]"
			i += 2
		default:
			out.WriteByte(chunk[i])
			i++
		}
	}
	return out.String()
}

// Open reports whether a region is still unterminated.
func (f *CommentFilter) Open() bool { return f.closer != "" }
