package ui

import (
	"bytes"
	"os"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
)

const codeStyleName = "dracula"

// fence is an opening code fence: the run of backticks or tildes and the
// language tag that follows it.
type fence struct {
	marker string
	lang   string
}

// highlightContent colors fenced code blocks in a message. Unclosed fences
// are left as plain text.
func highlightContent(content string) string {
	if content == "" || os.Getenv("NO_COLOR") != "" || !strings.Contains(content, "```") && !strings.Contains(content, "~~~") {
		return content
	}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		open, ok := openingFence(lines[i])
		if !ok {
			out = append(out, lines[i])
			continue
		}
		end := closingFence(lines, i+1, open)
		if end < 0 {
			out = append(out, lines[i])
			continue
		}
		out = append(out, lines[i])
		if end > i+1 {
			out = append(out, highlightBlock(strings.Join(lines[i+1:end], "\n"), open.lang))
		}
		out = append(out, lines[end])
		i = end
	}
	return strings.Join(out, "\n")
}

func openingFence(line string) (fence, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < 3 || (trimmed[0] != '`' && trimmed[0] != '~') {
		return fence{}, false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == trimmed[0] {
		n++
	}
	if n < 3 {
		return fence{}, false
	}
	f := fence{marker: trimmed[:n]}
	if fields := strings.Fields(trimmed[n:]); len(fields) > 0 {
		f.lang = fields[0]
	}
	return f, true
}

func closingFence(lines []string, from int, open fence) int {
	for i := from; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if len(trimmed) >= len(open.marker) && strings.Trim(trimmed, open.marker[:1]) == "" {
			return i
		}
	}
	return -1
}

func highlightBlock(code, lang string) string {
	lexer := lexerFor(code, lang)
	tokens, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	style := styles.Get(codeStyleName)
	if style == nil {
		style = styles.Fallback
	}
	var buf bytes.Buffer
	if err := formatters.TTY256.Format(&buf, style, tokens); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func lexerFor(code, lang string) chroma.Lexer {
	var lexer chroma.Lexer
	if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}
