// Package answer asks a generator to answer strictly from retrieved context.
package answer

import (
	"context"
	"log"
	"strings"

	"github.com/viant/docrag/llm"
)

// Fallback is returned verbatim whenever the answer cannot be grounded in the context.
const Fallback = "The answer is not available in the provided documents."

const promptTemplate = `You are a document assistant. Answer the question using only the context below.
If the context does not contain the answer, reply with exactly this sentence and nothing else:
` + Fallback + `

Context:
{{context}}

Question: {{question}}

Answer:`

// Generator produces grounded answers.
type Generator struct {
	generator llm.Generator
	template  string
	logf      func(format string, args ...any)
}

// Option configures Generator.
type Option func(*Generator)

// WithTemplate overrides the prompt template; it must contain {{context}} and {{question}}.
func WithTemplate(template string) Option {
	return func(g *Generator) {
		if strings.Contains(template, "{{context}}") && strings.Contains(template, "{{question}}") {
			g.template = template
		}
	}
}

// WithLogf sets the logger.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(g *Generator) { g.logf = fn }
}

// New wraps generator.
func New(generator llm.Generator, opts ...Option) *Generator {
	ret := &Generator{generator: generator, template: promptTemplate, logf: log.Printf}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Prompt renders the prompt sent to the model.
func (g *Generator) Prompt(question, contextBlock string) string {
	return strings.NewReplacer("{{context}}", contextBlock, "{{question}}", strings.TrimSpace(question)).Replace(g.template)
}

// Answer returns the model answer, or Fallback with true when generation fails,
// returns nothing, or declines to answer.
func (g *Generator) Answer(ctx context.Context, question, contextBlock string) (string, bool) {
	if g.generator == nil {
		return Fallback, true
	}
	out, err := g.generator.Generate(ctx, g.Prompt(question, contextBlock))
	if err != nil {
		g.logf("answer fallback err=%v", err)
		return Fallback, true
	}
	out = strings.TrimSpace(out)
	if out == "" || strings.Contains(out, Fallback) {
		return Fallback, true
	}
	return out, false
}
