// Package chunker splits long text into bounded segments for the voice service.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"voicegen/internal/domain/speech"
)

// DefaultMaxSize is a little under the voice service's per-request text limit.
const DefaultMaxSize = 2500

// Split breaks text into ordered, trimmed, non-empty chunks of at most maxSize
// characters. Sentence boundaries are preferred; sentences that do not fit on
// their own are split on whitespace.
func Split(text string, maxSize int) ([]speech.Chunk, error) {
	if err := Validate(text); err != nil {
		return nil, err
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max chunk size must be positive, got %d", speech.ErrInvalidInput, maxSize)
	}

	if length(text) <= maxSize {
		return []speech.Chunk{{Index: 0, Content: strings.TrimSpace(text)}}, nil
	}

	p := &packer{max: maxSize}
	for _, sentence := range sentences(text) {
		p.addSentence(sentence)
	}
	p.flush()

	chunks := make([]speech.Chunk, 0, len(p.out))
	for _, content := range p.out {
		chunks = append(chunks, speech.Chunk{Index: len(chunks), Content: content})
	}
	return chunks, nil
}

// Validate reports whether text can be synthesized at all.
func Validate(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", speech.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", speech.ErrInvalidInput)
	}
	return nil
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// sentences splits text after each run of terminal punctuation. Every sentence
// keeps its delimiter and leading whitespace, so joining them yields text.
func sentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	pos := 0 // byte offset of runes[i]
	for i := 0; i < len(runes); i++ {
		pos += utf8.RuneLen(runes[i])
		if !isTerminal(runes[i]) {
			continue
		}
		for i+1 < len(runes) && isTerminal(runes[i+1]) {
			i++
			pos += utf8.RuneLen(runes[i])
		}
		out = append(out, text[start:pos])
		start = pos
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

type packer struct {
	max     int
	running string
	out     []string
}

func (p *packer) addSentence(sentence string) {
	if strings.TrimSpace(sentence) == "" {
		p.running += sentence
		return
	}
	if length(p.running+sentence) <= p.max {
		p.running += sentence
		return
	}

	p.flush()
	trimmed := strings.TrimSpace(sentence)
	if length(trimmed) <= p.max {
		p.running = trimmed
		return
	}
	p.addWords(trimmed)
}

// addWords packs an oversized sentence word by word. The last partial chunk
// stays open so the following sentence can join it.
func (p *packer) addWords(sentence string) {
	for _, word := range strings.FieldsFunc(sentence, unicode.IsSpace) {
		for _, piece := range hardSplit(word, p.max) {
			candidate := piece
			if p.running != "" {
				candidate = p.running + " " + piece
			}
			if length(candidate) <= p.max {
				p.running = candidate
				continue
			}
			p.flush()
			p.running = piece
		}
	}
}

func (p *packer) flush() {
	if content := strings.TrimSpace(p.running); content != "" {
		p.out = append(p.out, content)
	}
	p.running = ""
}

// hardSplit cuts a single whitespace-free token into pieces of at most max characters.
func hardSplit(word string, max int) []string {
	if length(word) <= max {
		return []string{word}
	}
	var pieces []string
	runes := []rune(word)
	for i := 0; i < len(runes); i += max {
		end := i + max
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
	}
	return pieces
}
