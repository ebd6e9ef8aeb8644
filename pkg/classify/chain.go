package classify

import "github.com/ccollicutt/synclog/pkg/model"

// Chain classifies lines by trying matchers in order.
// A Chain is immutable and safe for concurrent use.
type Chain struct {
	matchers []Matcher
	noise    func(string) bool
}

// New returns the standard chain: sync, skipped, error, then the noise
// filter and the unparsed fallback.
func New() *Chain {
	return NewChain(SyncMatcher(), SkippedMatcher(), ErrorMatcher())
}

// NewChain builds a chain from the given matchers, tried in order.
func NewChain(matchers ...Matcher) *Chain {
	return &Chain{
		matchers: matchers,
		noise:    IsNoise,
	}
}

// Matchers returns the names of the matchers in evaluation order.
func (c *Chain) Matchers() []string {
	names := make([]string, len(c.matchers))
	for i, m := range c.matchers {
		names[i] = m.Name
	}
	return names
}

// Classify produces exactly one outcome for a line. The first matcher that
// returns Matched wins. Malformed results fall through and are reported in
// Outcome.Diagnostics.
func (c *Chain) Classify(line string, lc LineContext) Outcome {
	var diags []Diagnostic

	for _, m := range c.matchers {
		res := m.Match(line, lc)
		switch res.Status {
		case Matched:
			return Outcome{Kind: OutcomeClassified, Classified: res.Line, Diagnostics: diags}
		case Malformed:
			diags = append(diags, Diagnostic{
				Matcher:  m.Name,
				FileName: lc.fileName(),
				LineNum:  lc.LineNum,
				Line:     line,
				Err:      res.Err,
			})
		}
	}

	if c.noise(line) {
		return Outcome{Kind: OutcomeNoise, Diagnostics: diags}
	}

	un := &model.UnparsedLine{LineNum: lc.LineNum, Text: line}
	if lc.Version != nil {
		un.FileVersionID = lc.Version.ID
	}
	return Outcome{Kind: OutcomeUnparsed, Unparsed: un, Diagnostics: diags}
}
