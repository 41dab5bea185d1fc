package command

import (
	"fmt"
	"strings"
	"unicode"
)

// Token is one lexical unit of a command line.
type Token struct {
	// Text is the token exactly as written (quotes removed for literals)
	Text string

	// Word is the lowercased form used for keyword matching. For quoted
	// literals it equals Text.
	Word string

	// Quoted is true for single- or double-quoted literals
	Quoted bool
}

var typographicQuotes = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
)

const trailingPunctuation = ".,;!?"

// Normalize splits a raw command line into tokens. Quoted spans are kept
// verbatim as a single token; unquoted words lose trailing sentence
// punctuation and get a lowercased Word for matching.
func Normalize(line string) ([]Token, error) {
	line = strings.TrimSpace(typographicQuotes.Replace(line))
	runes := []rune(line)

	var tokens []Token
	for i := 0; i < len(runes); {
		r := runes[i]
		if unicode.IsSpace(r) {
			i++
			continue
		}

		if r == '\'' || r == '"' {
			end := closingQuote(runes, i+1, r)
			if end < 0 {
				return nil, fmt.Errorf("%w: unbalanced %c quote in %q", ErrMalformedInput, r, line)
			}
			text := string(runes[i+1 : end])
			tokens = append(tokens, Token{Text: text, Word: text, Quoted: true})
			i = end + 1
			continue
		}

		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		word := strings.TrimRight(string(runes[start:i]), trailingPunctuation)
		if word == "" {
			continue
		}
		tokens = append(tokens, Token{Text: word, Word: strings.ToLower(word)})
	}

	return tokens, nil
}

// closingQuote finds the quote that ends a literal opened before from. A quote
// only closes the literal when followed by whitespace, punctuation or the end
// of the line, so apostrophes inside words survive.
func closingQuote(runes []rune, from int, quote rune) int {
	for j := from; j < len(runes); j++ {
		if runes[j] != quote {
			continue
		}
		if j+1 == len(runes) || unicode.IsSpace(runes[j+1]) || strings.ContainsRune(trailingPunctuation, runes[j+1]) {
			return j
		}
	}
	return -1
}
