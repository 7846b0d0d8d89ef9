// internal/morse/morse.go
//
// Morse encoder for the terminal puzzle.
// Responsibilities:
//   - Hold the fixed International Morse table (A–Z plus word space).
//   - Encode plaintext into space-separated Morse tokens.
//   - Split an encoded message into fixed-size display chunks.
//
// Notes:
//   - Runes are uppercased before lookup.
//   - Runes with no table entry are emitted unchanged; digits in the secret
//     therefore show up as themselves in the feed.

package morse

import (
	"iter"
	"slices"
	"strings"
	"unicode"
)

// ChunkSize is the maximum rune length of one display chunk.
const ChunkSize = 15

// WordSpace is the token emitted for a space.
const WordSpace = "/"

// table maps an uppercase rune to its Morse token. Never mutated.
var table = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".", 'F': "..-.",
	'G': "--.", 'H': "....", 'I': "..", 'J': ".---", 'K': "-.-", 'L': ".-..",
	'M': "--", 'N': "-.", 'O': "---", 'P': ".--.", 'Q': "--.-", 'R': ".-.",
	'S': "...", 'T': "-", 'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-",
	'Y': "-.--", 'Z': "--..", ' ': WordSpace,
}

// Lookup returns the token for r (after uppercasing) and whether it is in the table.
func Lookup(r rune) (string, bool) {
	tok, ok := table[unicode.ToUpper(r)]
	return tok, ok
}

// Encode converts plaintext to Morse, one token per rune, joined by single spaces.
// Unmapped runes pass through as-is. Encode("") == "".
func Encode(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	tokens := make([]string, 0, len(plaintext))
	for _, r := range plaintext {
		if tok, ok := Lookup(r); ok {
			tokens = append(tokens, tok)
			continue
		}
		tokens = append(tokens, string(r))
	}
	return strings.Join(tokens, " ")
}

// Chunks yields consecutive substrings of encoded holding at most size runes.
// The sequence can be ranged over any number of times. A non-positive size
// yields the whole string as one chunk.
func Chunks(encoded string, size int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if encoded == "" {
			return
		}
		if size <= 0 {
			yield(encoded)
			return
		}
		start, n := 0, 0
		for i := range encoded {
			if n == size {
				if !yield(encoded[start:i]) {
					return
				}
				start, n = i, 0
			}
			n++
		}
		yield(encoded[start:])
	}
}

// Split collects Chunks into a slice. Empty input gives an empty (non-nil) slice.
func Split(encoded string, size int) []string {
	out := slices.Collect(Chunks(encoded, size))
	if out == nil {
		return []string{}
	}
	return out
}
