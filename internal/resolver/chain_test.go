package resolver

import "testing"

func TestChainOrder(t *testing.T) {
	chain := NewChain(
		[]string{"https://pipedapi.a", "https://pipedapi.b"},
		[]string{"https://yewtu.be"},
	)

	expected := []Hint{
		{Source: SourcePiped, Instance: "https://pipedapi.a"},
		{Source: SourcePiped, Instance: "https://pipedapi.b"},
		{Source: SourceInvidious, Instance: "https://yewtu.be"},
		{Source: SourceCatalog},
	}

	if chain.Len() != len(expected) {
		t.Fatalf("Len() = %d, want %d", chain.Len(), len(expected))
	}

	hint, ok := chain.First()
	if !ok {
		t.Fatal("First() should exist")
	}

	for i, want := range expected {
		if hint != want {
			t.Fatalf("step %d = %+v, want %+v", i, hint, want)
		}
		hint, ok = chain.Next(hint)
		if i < len(expected)-1 && !ok {
			t.Fatalf("chain ended early after step %d", i)
		}
	}

	if ok {
		t.Error("chain should be exhausted after the catalog step")
	}
}

func TestChainZeroHintAdvancesToFirst(t *testing.T) {
	chain := NewChain(nil, nil)

	hint, ok := chain.Next(Hint{})
	if !ok {
		t.Fatal("Next() from the default attempt should yield the first fallback")
	}
	if hint.Source != SourcePiped || hint.Instance != "" {
		t.Errorf("first fallback = %+v, want bare piped", hint)
	}
}

func TestChainEmptyInstanceLists(t *testing.T) {
	chain := NewChain(nil, nil)

	// Each family still contributes one backend-chosen entry.
	if chain.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", chain.Len())
	}

	hint, _ := chain.First()
	hint, _ = chain.Next(hint)
	if hint.Source != SourceInvidious {
		t.Errorf("second step source = %q, want invidious", hint.Source)
	}
	hint, _ = chain.Next(hint)
	if hint.Source != SourceCatalog {
		t.Errorf("last step source = %q, want catalog", hint.Source)
	}
}

func TestChainUnknownHint(t *testing.T) {
	chain := NewChain(nil, nil)

	if _, ok := chain.Next(Hint{Source: SourcePiped, Instance: "https://unknown.example"}); ok {
		t.Error("Next() after an unknown hint should not advance")
	}
}
