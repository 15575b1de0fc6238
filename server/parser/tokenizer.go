package parser

import (
	"strings"
)

// Tokenize splits a command line into tokens. Commas are separators,
// not tokens, so "PROJECT a,b FROM t" and "PROJECT a, b FROM t" read
// the same. Everything else splits on whitespace.
func Tokenize(line string) []string {
	line = strings.ReplaceAll(line, ",", " ")
	return strings.Fields(line)
}
