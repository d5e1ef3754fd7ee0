package resolver

// Chain is the ordered set of explicit fallback hints: every configured
// piped instance, then every invidious instance, then the catalog. The
// resolver never walks the chain on its own; the caller advances it one
// step per failed attempt, so one resolution stays one upstream attempt.
type Chain struct {
	hints []Hint
}

// NewChain builds the fallback order from the configured instance lists.
// A provider family with no configured instances still contributes one
// entry with an empty instance, letting the backend pick a deployment.
func NewChain(pipedInstances, invidiousInstances []string) *Chain {
	var hints []Hint

	hints = append(hints, familyHints(SourcePiped, pipedInstances)...)
	hints = append(hints, familyHints(SourceInvidious, invidiousInstances)...)
	hints = append(hints, Hint{Source: SourceCatalog})

	return &Chain{hints: hints}
}

func familyHints(source Source, instances []string) []Hint {
	if len(instances) == 0 {
		return []Hint{{Source: source}}
	}
	hints := make([]Hint, 0, len(instances))
	for _, instance := range instances {
		hints = append(hints, Hint{Source: source, Instance: instance})
	}
	return hints
}

// First returns the first explicit fallback, tried after the default
// (hint-less) attempt fails.
func (c *Chain) First() (Hint, bool) {
	if len(c.hints) == 0 {
		return Hint{}, false
	}
	return c.hints[0], true
}

// Next returns the hint following the given one. A zero hint (the default
// attempt) advances to the first entry; the hint after the last entry does
// not exist.
func (c *Chain) Next(after Hint) (Hint, bool) {
	if after.IsZero() {
		return c.First()
	}
	for i, h := range c.hints {
		if h == after && i+1 < len(c.hints) {
			return c.hints[i+1], true
		}
	}
	return Hint{}, false
}

// Len reports the number of explicit fallback steps.
func (c *Chain) Len() int {
	return len(c.hints)
}
