package sets

import "testing"

func TestSet(t *testing.T) {
	s := New("a", "b")
	s.Add("c")
	if !s.Has("b") || !s.Has("c") {
		t.Fatal("expected members to be present")
	}
	c := s.Clone()
	s.Delete("a")
	if s.Has("a") {
		t.Fatal("expected a to be deleted")
	}
	if !c.Has("a") {
		t.Fatal("clone must not observe deletes")
	}
}

func TestOrdered(t *testing.T) {
	var o Ordered[string]
	for _, v := range []string{"P1", "P3", "P1", "P2", "P3"} {
		o.Add(v)
	}
	got := o.Items()
	want := []string{"P1", "P3", "P2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if o.Add("P2") {
		t.Fatal("duplicate add must report false")
	}
	if o.Len() != 3 || !o.Has("P3") {
		t.Fatal("unexpected state")
	}
}
