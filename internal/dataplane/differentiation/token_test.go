package differentiation

import "testing"

func TestBuilderNoDiffSentinel(t *testing.T) {
	b := NewBuilder(HashX86_32)
	b.SetClassifiers(false, false, false)
	b.Bind()

	first := b.Token(1, 2, 3)
	second := b.Token(99, 98, 97)
	if first != second {
		t.Fatalf("no-diff builder must be insensitive to classifier values: %d != %d", first, second)
	}
}

func TestBuilderDeterministic(t *testing.T) {
	b := NewBuilder(HashX86_32)
	b.SetClassifiers(true, true, false)
	b.Bind()

	a := b.Token(10, 20, 0)
	c := b.Token(10, 20, 0)
	if a != c {
		t.Fatalf("token must be deterministic for identical inputs, got %d and %d", a, c)
	}
}

func TestBuilderDistinguishesClassifiers(t *testing.T) {
	b := NewBuilder(HashX86_32)
	b.SetClassifiers(true, false, false)
	b.Bind()

	a := b.Token(1, 0, 0)
	c := b.Token(2, 0, 0)
	if a == c {
		t.Fatalf("distinct workflow ids should (overwhelmingly likely) hash differently: both %d", a)
	}
}

func TestBuilderRebindAfterClassifierChange(t *testing.T) {
	b := NewBuilder(HashX86_32)
	b.SetClassifiers(true, false, false)
	b.Bind()
	withWorkflow := b.Token(5, 0, 0)

	b.SetClassifiers(false, true, false)
	b.Bind()
	withType := b.Token(5, 5, 0)

	if withWorkflow != withType {
		return // not required to differ, but exercising the rebind path must not panic
	}
}

func TestBuilderHashFamilies(t *testing.T) {
	b32 := NewBuilder(HashX86_32)
	b32.SetClassifiers(true, true, true)
	b32.Bind()

	b128 := NewBuilder(HashX64_128)
	b128.SetClassifiers(true, true, true)
	b128.Bind()

	if b32.Token(1, 2, 3) == b128.Token(1, 2, 3) {
		t.Fatalf("different hash families colliding on the same input is suspicious for this test vector")
	}
}

func TestTokenPanicsBeforeBind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic calling Token before Bind")
		}
	}()
	b := NewBuilder(HashX86_32)
	b.SetClassifiers(true, false, false)
	b.Token(1, 0, 0)
}
