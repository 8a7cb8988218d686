package parsing

import (
	"strings"

	"github.com/codanna-go/codanna/internal/symbol"
)

// firstChildContent returns the source content of the first direct child
// of n matching nodeType.
func firstChildContent(n *Node, source []byte, nodeType string) string {
	if c := n.ChildByFieldType(nodeType); c != nil {
		return c.Content(source)
	}
	return ""
}

// nodeRange converts a parsed Node's position into the packed symbol.Range.
func nodeRange(n *Node) symbol.Range {
	return symbol.Range{
		StartByte: n.StartByte,
		EndByte:   n.EndByte,
		StartLine: n.StartPoint.Row,
		StartCol:  n.StartPoint.Column,
		EndLine:   n.EndPoint.Row,
		EndCol:    n.EndPoint.Column,
	}
}

// leadingLineComments scans backward from n's start line for a contiguous
// run of line comments (the language's single-line comment marker) and
// returns them joined, trimmed of the marker. This mirrors the
// line-scan-based doc comment extraction used across the retrieved code
// intelligence examples (e.g. standardbeagle/lci's line_scanner.go),
// generalized to a marker string so every language extractor can reuse it.
func leadingLineComments(n *Node, source []byte, marker string) (string, bool) {
	if n == nil || n.StartPoint.Row == 0 {
		return "", false
	}
	lines := strings.Split(string(source), "\n")
	row := int(n.StartPoint.Row)
	if row > len(lines) {
		return "", false
	}

	var collected []string
	for i := row - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			break
		}
		if !strings.HasPrefix(line, marker) {
			break
		}
		collected = append([]string{strings.TrimSpace(strings.TrimPrefix(line, marker))}, collected...)
	}
	if len(collected) == 0 {
		return "", false
	}
	return strings.Join(collected, "\n"), true
}

// leadingBlockOrLineComment checks for either a block comment
// (openMarker...closeMarker) or a run of line comments immediately above
// n, preferring whichever is adjacent. Used by languages with both doc
// styles (e.g. Python's triple-quoted docstring is handled separately;
// this covers JSDoc-style /** */ blocks).
func leadingBlockOrLineComment(n *Node, source []byte, lineMarker, blockOpen, blockClose string) (string, bool) {
	if n == nil || n.StartPoint.Row == 0 {
		return "", false
	}
	lines := strings.Split(string(source), "\n")
	row := int(n.StartPoint.Row)
	if row == 0 || row > len(lines) {
		return "", false
	}
	prev := strings.TrimSpace(lines[row-1])
	if strings.HasSuffix(prev, blockClose) {
		// Walk upward collecting the block.
		var block []string
		for i := row - 1; i >= 0; i-- {
			block = append([]string{lines[i]}, block...)
			if strings.Contains(lines[i], blockOpen) {
				text := strings.Join(block, "\n")
				text = strings.TrimPrefix(strings.TrimSpace(text), blockOpen)
				text = strings.TrimSuffix(strings.TrimSpace(text), blockClose)
				return strings.TrimSpace(text), true
			}
		}
	}
	return leadingLineComments(n, source, lineMarker)
}
