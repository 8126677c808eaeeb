package generate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

const systemPrompt = `You are a precise assistant that answers questions using only the provided context.
Rules:
- Answer only from the context below. Do not use outside knowledge.
- If the context does not contain the answer, reply exactly: "I don't have enough information to answer this question."
- Cite sources by their number, e.g. [Source 1], where the information came from.`

// buildUserPrompt renders numbered context blocks followed by the question.
func buildUserPrompt(chunks []result.Chunk, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	for i := range chunks {
		c := &chunks[i]
		fmt.Fprintf(&b, "[Source %d] (%s", i+1, c.Source())
		if c.Title() != "" {
			fmt.Fprintf(&b, ", %s", c.Title())
		}
		b.WriteString(")\n")
		b.WriteString(c.Text())
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// fitContext selects the prefix of chunks whose rendered context blocks,
// source headers included, fit the character budget. Chunks are included
// whole; the exception is a first chunk whose block alone exceeds the budget,
// which is truncated at a sentence boundary so the model still sees the best
// match.
func fitContext(chunks []result.Chunk, budget int) []result.Chunk {
	if budget <= 0 || len(chunks) == 0 {
		return chunks
	}

	if first := &chunks[0]; blockOverhead(first, 1)+len(first.Text()) > budget {
		textBudget := budget - blockOverhead(first, 1)
		if textBudget <= 0 {
			textBudget = budget
		}
		return []result.Chunk{result.NewChunk(
			first.ID(), first.DocumentID(), truncateAtSentence(first.Text(), textBudget),
			first.Source(), first.Title(), first.Similarity(), first.KeywordScore(),
		)}
	}

	used := 0
	for i := range chunks {
		size := blockOverhead(&chunks[i], i+1) + len(chunks[i].Text())
		if used+size > budget {
			return chunks[:i]
		}
		used += size
	}
	return chunks
}

// blockOverhead is the rendered size of the chunk's context block minus its
// text: the "[Source N] (source, title)" header and the surrounding newlines
// emitted by buildUserPrompt.
func blockOverhead(c *result.Chunk, n int) int {
	overhead := len("[Source ") + len(strconv.Itoa(n)) + len("] (") +
		len(c.Source()) + len(")\n") + len("\n\n")
	if c.Title() != "" {
		overhead += len(", ") + len(c.Title())
	}
	return overhead
}

// truncateAtSentence cuts text to at most limit characters, preferring the
// last sentence end. Falls back to a hard cut when no boundary exists in the
// second half of the window.
func truncateAtSentence(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	window := text[:limit]
	cut := -1
	for _, sep := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if idx := strings.LastIndex(window, sep); idx > cut {
			cut = idx
		}
	}
	if cut >= limit/2 {
		return window[:cut+1]
	}
	return window
}

// uncertainty markers the model emits when the context is insufficient.
var uncertaintyMarkers = []string{
	"i don't have enough information",
	"i do not have enough information",
	"insufficient information",
	"cannot answer",
	"can't answer",
	"no information",
	"i don't know",
	"i do not know",
	"unable to determine",
}

// soundsUncertain reports whether the answer carries an uncertainty marker.
func soundsUncertain(answer string) bool {
	lower := strings.ToLower(answer)
	for _, m := range uncertaintyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
