// Package narrative turns aggregate data into prose, preferring the
// external text generator and falling back to a deterministic template.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/synthesis-engine/internal/textgen"
)

const systemPrompt = `You are the analytics assistant of a creative AI platform.
You receive an administrator's question or a report title together with JSON data
computed from the platform's event log. Answer in at most three short paragraphs of
plain prose. Use only the numbers present in the data, state notable trends, and end
with one concrete suggestion. Do not invent figures.`

// Facts is implemented by payloads that can describe themselves as short
// factual sentences; the fallback narrative is assembled from them.
type Facts interface {
	Facts() []string
}

// Context describes what a narrative is about
type Context struct {
	// Subject is the admin question or the report title
	Subject  string
	Category string
}

// Options bounds the text generation call
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Generator produces narratives; it never fails
type Generator struct {
	textgen textgen.Generator
	opts    Options
	log     *zap.Logger
}

// NewGenerator creates a narrative generator. A nil text generator makes
// every narrative use the fallback.
func NewGenerator(gen textgen.Generator, opts Options, log *zap.Logger) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Generator{textgen: gen, opts: opts, log: log}
}

// Narrate describes data in the light of nctx. The second return value
// reports whether the text came from the external generator.
func (g *Generator) Narrate(ctx context.Context, nctx Context, data any) (string, bool) {
	if g.textgen == nil {
		return Fallback(nctx, data), false
	}

	payload, err := json.Marshal(data)
	if err != nil {
		g.log.Warn("Failed to serialize narrative payload", zap.Error(err))
		return Fallback(nctx, data), false
	}

	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	text, err := g.textgen.Generate(callCtx, textgen.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(nctx, payload),
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		g.log.Warn("Text generation failed, using fallback narrative",
			zap.String("category", nctx.Category),
			zap.Error(err))
		return Fallback(nctx, data), false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		g.log.Warn("Text generation returned empty narrative, using fallback",
			zap.String("category", nctx.Category))
		return Fallback(nctx, data), false
	}

	return text, true
}

func buildPrompt(nctx Context, payload []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", nctx.Subject)
	if nctx.Category != "" {
		fmt.Fprintf(&b, "Data category: %s\n", nctx.Category)
	}
	b.WriteString("Data (JSON):\n")
	b.Write(payload)
	return b.String()
}

// Fallback assembles a narrative from the facts data exposes. It is
// deterministic for a given input.
func Fallback(nctx Context, data any) string {
	var b strings.Builder

	title := nctx.Subject
	if title == "" {
		title = "Analytics summary"
	}
	b.WriteString(title)
	if nctx.Category != "" {
		fmt.Fprintf(&b, " (%s)", strings.ReplaceAll(nctx.Category, "_", " "))
	}
	b.WriteString(":")

	var facts []string
	if f, ok := data.(Facts); ok && f != nil {
		facts = f.Facts()
	}

	if len(facts) == 0 {
		b.WriteString(" no summary could be generated for this data; the raw figures are included in the response.")
		return b.String()
	}

	for _, fact := range facts {
		b.WriteString("\n- ")
		b.WriteString(fact)
	}
	return b.String()
}
