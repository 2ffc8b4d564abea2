package agent

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+.+`)
	bulletRe     = regexp.MustCompile(`(?m)^\s*[-•*+]\s+.+`)
	numberedRe   = regexp.MustCompile(`(?m)^\s*\d+\.\s+.+`)
	sentenceEnd  = regexp.MustCompile(`[.!?]+(\s+|$)`)
	paragraphSep = regexp.MustCompile(`\n\s*\n`)
	markdownRe   = regexp.MustCompile(`(?m)^\s*(#{1,6}|[-•*+]|\d+\.)\s+`)
	emphasisRe   = regexp.MustCompile(`[*_` + "`" + `]+`)
)

// Words splits text on whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Sentences splits text into trimmed, non-empty sentences.
func Sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[last:loc[1]])
		if s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// Paragraphs splits text on blank lines, dropping empty blocks.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range paragraphSep.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Headings returns the markdown heading lines in text.
func Headings(text string) []string {
	return headingRe.FindAllString(text, -1)
}

// ListItems counts bullet and numbered list lines.
func ListItems(text string) int {
	return len(bulletRe.FindAllString(text, -1)) + len(numberedRe.FindAllString(text, -1))
}

// PlainText strips the markdown markers that skew readability counts.
func PlainText(text string) string {
	text = markdownRe.ReplaceAllString(text, "")
	return emphasisRe.ReplaceAllString(text, "")
}

// Syllables estimates the syllable count of an English word by counting
// vowel groups, discounting a silent trailing e.
func Syllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }))
	if word == "" {
		return 0
	}
	count := 0
	prevVowel := false
	for _, r := range word {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

// Readability holds the Flesch scores for a text.
type Readability struct {
	ReadingEase float64 `json:"flesch_reading_ease"`
	Grade       float64 `json:"flesch_kincaid_grade"`
}

// Flesch computes Flesch reading ease and Flesch-Kincaid grade level. Text
// without words scores a neutral 50 / grade 10.
func Flesch(text string) Readability {
	plain := PlainText(text)
	words := Words(plain)
	sentences := Sentences(plain)
	if len(words) == 0 || len(sentences) == 0 {
		return Readability{ReadingEase: 50, Grade: 10}
	}
	syllables := 0
	for _, w := range words {
		syllables += Syllables(w)
	}
	wps := float64(len(words)) / float64(len(sentences))
	spw := float64(syllables) / float64(len(words))
	return Readability{
		ReadingEase: 206.835 - 1.015*wps - 84.6*spw,
		Grade:       0.39*wps + 11.8*spw - 15.59,
	}
}

// Metrics measures the shape of a markdown draft.
func Metrics(text string) (words, sentences, paragraphs, headings int, avgSentence float64) {
	words = WordCount(text)
	sentences = len(Sentences(PlainText(text)))
	paragraphs = len(Paragraphs(text))
	headings = len(Headings(text))
	if sentences > 0 {
		avgSentence = float64(words) / float64(sentences)
	}
	return words, sentences, paragraphs, headings, avgSentence
}

// Truncate shortens s to at most n bytes on a word boundary, appending
// suffix when anything was cut.
func Truncate(s string, n int, suffix string) string {
	if len(s) <= n {
		return s
	}
	cut := n - len(suffix)
	if cut < 0 {
		cut = 0
	}
	s = s[:cut]
	if i := strings.LastIndex(s, " "); i > 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, " ,.;:") + suffix
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
