package idgen_test

import (
	"testing"

	"github.com/zerotobillion/teapot-server/adapters/idgen"
)

func TestUUID_New(t *testing.T) {
	g := idgen.UUID{}

	a := g.New()
	b := g.New()

	if len(a) != 36 {
		t.Errorf("id length = %d, want 36", len(a))
	}
	if a == b {
		t.Error("consecutive ids should differ")
	}
}

func TestSequential_New(t *testing.T) {
	g := idgen.NewSequential("evt")

	if got := g.New(); got != "evt-1" {
		t.Errorf("first id = %q, want evt-1", got)
	}
	if got := g.New(); got != "evt-2" {
		t.Errorf("second id = %q, want evt-2", got)
	}
}
