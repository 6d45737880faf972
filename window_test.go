package griddus

import (
	"errors"
	"testing"
)

func newWindowFixture(t *testing.T, size int, itemIDs ...string) (*Collection[*testItem], *WindowView[*testItem]) {
	t.Helper()
	c := NewCollection(testID)
	for i, id := range itemIDs {
		if err := c.Add(newItem(id, float64(i))); err != nil {
			t.Fatalf("Add %q failed: %v", id, err)
		}
	}
	v, err := NewWindowView[*testItem](c, size)
	if err != nil {
		t.Fatalf("NewWindowView failed: %v", err)
	}
	return c, v
}

// TestWindowContainment verifies the visible slice tracks offset and size
func TestWindowContainment(t *testing.T) {
	c, v := newWindowFixture(t, 2, "a", "b", "c", "d")

	if s := ids(v.Items()); s != "a,b" {
		t.Errorf("Expected a,b, got %s", s)
	}
	if v.Total() != 4 {
		t.Errorf("Expected total 4, got %d", v.Total())
	}

	// A window past the upstream end is simply empty.
	if err := v.SetOffset(9); err != nil {
		t.Fatalf("SetOffset failed: %v", err)
	}
	if v.Len() != 0 {
		t.Errorf("Expected empty window, got %d items", v.Len())
	}

	// The slice is derived from upstream at read time.
	if err := v.SetOffset(3); err != nil {
		t.Fatalf("SetOffset failed: %v", err)
	}
	if s := ids(v.Items()); s != "d" {
		t.Errorf("Expected d, got %s", s)
	}
	if err := c.Add(newItem("e", 4)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if s := ids(v.Items()); s != "d,e" {
		t.Errorf("Expected d,e, got %s", s)
	}
}

// TestWindowRejectsNegativeBounds verifies errors leave state intact
func TestWindowRejectsNegativeBounds(t *testing.T) {
	_, v := newWindowFixture(t, 2, "a", "b", "c")

	if err := v.SetOffset(-1); !errors.Is(err, ErrNegativeOffset) {
		t.Errorf("Expected ErrNegativeOffset, got %v", err)
	}
	if err := v.SetSize(-1); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("Expected ErrNegativeSize, got %v", err)
	}
	if v.Offset() != 0 || v.Size() != 2 {
		t.Errorf("Expected state intact, got offset %d size %d", v.Offset(), v.Size())
	}

	c := NewCollection(testID)
	if _, err := NewWindowView[*testItem](c, -3); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("Expected ErrNegativeSize from constructor, got %v", err)
	}
}

// TestWindowInsertTranslation verifies inside vs outside insertion
func TestWindowInsertTranslation(t *testing.T) {
	c, v := newWindowFixture(t, 3, "a", "b")

	// Appended inside the window: translated with the offset subtracted.
	got := Collect(v.Changes(), func() {
		if err := c.Add(newItem("c", 2)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	})
	if len(got) != 1 || got[0].Type != ChangeInsert || got[0].Index != 2 || !got[0].NewlyAdded {
		t.Errorf("Expected insert at window index 2, got %+v", got)
	}

	// Appended past the window: content unchanged, scroll extent grew.
	got = Collect(v.Changes(), func() {
		if err := c.Add(newItem("d", 3)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	})
	if s := changeTypes(got); s != "scroll" {
		t.Errorf("Expected scroll, got %s", s)
	}
}

// TestWindowRemoveTranslation verifies the three removal regions
func TestWindowRemoveTranslation(t *testing.T) {
	c, v := newWindowFixture(t, 2, "a", "b", "c", "d", "e")
	if err := v.SetOffset(2); err != nil { // shows c,d
		t.Fatalf("SetOffset failed: %v", err)
	}

	// Removal before the window slides the offset down silently.
	got := Collect(v.Changes(), func() {
		if _, err := c.RemoveAt(0); err != nil {
			t.Fatalf("RemoveAt failed: %v", err)
		}
	})
	if s := changeTypes(got); s != "scroll" {
		t.Errorf("Expected scroll, got %s", s)
	}
	if v.Offset() != 1 {
		t.Errorf("Expected offset 1, got %d", v.Offset())
	}
	if s := ids(v.Items()); s != "c,d" {
		t.Errorf("Expected window still showing c,d, got %s", s)
	}

	// Removal inside the window.
	got = Collect(v.Changes(), func() {
		if _, err := c.RemoveAt(1); err != nil { // "c"
			t.Fatalf("RemoveAt failed: %v", err)
		}
	})
	if len(got) != 1 || got[0].Type != ChangeRemove || got[0].ID != "c" || got[0].Index != 0 {
		t.Errorf("Expected remove of c at window index 0, got %+v", got)
	}

	// Removal past the window. Upstream is now b,d,e with the window at 1.
	got = Collect(v.Changes(), func() {
		if _, err := c.RemoveAt(0); err != nil {
			t.Fatalf("RemoveAt failed: %v", err)
		}
	})
	if v.Offset() != 0 {
		t.Errorf("Expected offset 0, got %d", v.Offset())
	}
	got = Collect(v.Changes(), func() {
		if err := c.Add(newItem("f", 9)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if _, err := c.RemoveAt(2); err != nil { // "f", past window [d,e]
			t.Fatalf("RemoveAt failed: %v", err)
		}
	})
	if s := changeTypes(got); s != "scroll,scroll" {
		t.Errorf("Expected scroll,scroll, got %s", s)
	}
}

// TestWindowUpdateTranslation verifies updates outside the window are dropped
func TestWindowUpdateTranslation(t *testing.T) {
	c := NewCollection(testID)
	a := newItem("a", 0)
	b := newItem("b", 1)
	x := newItem("x", 2)
	for _, it := range []*testItem{a, b, x} {
		if err := c.Add(it); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	v, err := NewWindowView[*testItem](c, 2)
	if err != nil {
		t.Fatalf("NewWindowView failed: %v", err)
	}

	got := Collect(v.Changes(), func() {
		b.value = 10
		b.MarkChanged()
	})
	if len(got) != 1 || got[0].Type != ChangeUpdate || got[0].Index != 1 {
		t.Errorf("Expected update at window index 1, got %+v", got)
	}

	got = Collect(v.Changes(), func() {
		x.value = 10
		x.MarkChanged()
	})
	if len(got) != 0 {
		t.Errorf("Expected update outside window dropped, got %s", changeTypes(got))
	}
}

// TestWindowMoveCases verifies the six endpoint classifications
func TestWindowMoveCases(t *testing.T) {
	setup := func(t *testing.T) (*Collection[*testItem], *WindowView[*testItem]) {
		c, v := newWindowFixture(t, 2, "a", "b", "c", "d", "e", "f")
		if err := v.SetOffset(2); err != nil { // shows c,d
			t.Fatalf("SetOffset failed: %v", err)
		}
		return c, v
	}

	t.Run("stayed before", func(t *testing.T) {
		c, v := setup(t)
		got := Collect(v.Changes(), func() { c.Move(0, 1) })
		if len(got) != 0 {
			t.Errorf("Expected nothing, got %s", changeTypes(got))
		}
	})

	t.Run("stayed after", func(t *testing.T) {
		c, v := setup(t)
		got := Collect(v.Changes(), func() { c.Move(4, 5) })
		if len(got) != 0 {
			t.Errorf("Expected nothing, got %s", changeTypes(got))
		}
	})

	t.Run("moved within", func(t *testing.T) {
		c, v := setup(t)
		got := Collect(v.Changes(), func() { c.Move(2, 3) })
		if len(got) != 1 || got[0].Type != ChangeMove || got[0].OldIndex != 0 || got[0].NewIndex != 1 {
			t.Errorf("Expected windowed move 0->1, got %+v", got)
		}
		if s := ids(v.Items()); s != "d,c" {
			t.Errorf("Expected d,c, got %s", s)
		}
	})

	t.Run("before to after", func(t *testing.T) {
		c, v := setup(t)
		got := Collect(v.Changes(), func() { c.Move(0, 5) })
		if len(got) != 1 || got[0].Type != ChangeReplace {
			t.Fatalf("Expected replace, got %+v", got)
		}
		ch := got[0]
		if ch.OldID != "c" || ch.OldIndex != 0 || ch.ID != "e" || ch.Index != 1 {
			t.Errorf("Expected c@0 replaced by e@1, got %+v", ch)
		}
		if s := ids(v.Items()); s != "d,e" {
			t.Errorf("Expected d,e, got %s", s)
		}
	})

	t.Run("after to before", func(t *testing.T) {
		c, v := setup(t)
		got := Collect(v.Changes(), func() { c.Move(5, 0) })
		if len(got) != 1 || got[0].Type != ChangeReplace {
			t.Fatalf("Expected replace, got %+v", got)
		}
		ch := got[0]
		if ch.OldID != "d" || ch.OldIndex != 1 || ch.ID != "b" || ch.Index != 0 {
			t.Errorf("Expected d@1 replaced by b@0, got %+v", ch)
		}
		if s := ids(v.Items()); s != "b,c" {
			t.Errorf("Expected b,c, got %s", s)
		}
	})

	t.Run("inside to before", func(t *testing.T) {
		c, v := setup(t)
		got := Collect(v.Changes(), func() { c.Move(2, 0) })
		if len(got) != 1 || got[0].Type != ChangeReplace {
			t.Fatalf("Expected replace, got %+v", got)
		}
		ch := got[0]
		if ch.OldID != "c" || ch.OldIndex != 0 || ch.ID != "b" || ch.Index != 0 {
			t.Errorf("Expected c@0 replaced by b@0, got %+v", ch)
		}
		if s := ids(v.Items()); s != "b,d" {
			t.Errorf("Expected b,d, got %s", s)
		}
	})

	t.Run("inside to after", func(t *testing.T) {
		c, v := setup(t)
		got := Collect(v.Changes(), func() { c.Move(3, 5) })
		if len(got) != 1 || got[0].Type != ChangeReplace {
			t.Fatalf("Expected replace, got %+v", got)
		}
		ch := got[0]
		if ch.OldID != "d" || ch.OldIndex != 1 || ch.ID != "e" || ch.Index != 1 {
			t.Errorf("Expected d@1 replaced by e@1, got %+v", ch)
		}
		if s := ids(v.Items()); s != "c,e" {
			t.Errorf("Expected c,e, got %s", s)
		}
	})

	t.Run("before to inside", func(t *testing.T) {
		c, v := setup(t)
		got := Collect(v.Changes(), func() { c.Move(0, 3) })
		if len(got) != 1 || got[0].Type != ChangeReplace {
			t.Fatalf("Expected replace, got %+v", got)
		}
		ch := got[0]
		if ch.OldID != "c" || ch.OldIndex != 0 || ch.ID != "a" || ch.Index != 1 {
			t.Errorf("Expected c@0 replaced by a@1, got %+v", ch)
		}
		if s := ids(v.Items()); s != "d,a" {
			t.Errorf("Expected d,a, got %s", s)
		}
	})
}

// TestSetOffsetResetThreshold verifies shifting by at least half the window
// takes the reset path
func TestSetOffsetResetThreshold(t *testing.T) {
	_, v := newWindowFixture(t, 2, "a", "b", "c", "d")

	// Shift of 1 equals half of size 2: reset path.
	got := Collect(v.Changes(), func() {
		if err := v.SetOffset(1); err != nil {
			t.Fatalf("SetOffset failed: %v", err)
		}
	})
	if s := changeTypes(got); s != "reset,scroll" {
		t.Errorf("Expected reset,scroll, got %s", s)
	}
	if s := ids(v.Items()); s != "b,c" {
		t.Errorf("Expected b,c, got %s", s)
	}
}

// TestSetOffsetIncrementalReplaces verifies per-row diffs for small shifts
func TestSetOffsetIncrementalReplaces(t *testing.T) {
	_, v := newWindowFixture(t, 4, "a", "b", "c", "d", "e", "f")

	// Shift of 1 is under half of size 4: one replace in scroll direction.
	got := Collect(v.Changes(), func() {
		if err := v.SetOffset(1); err != nil {
			t.Fatalf("SetOffset failed: %v", err)
		}
	})
	if len(got) != 2 {
		t.Fatalf("Expected replace,scroll, got %s", changeTypes(got))
	}
	if got[0].Type != ChangeReplace || got[0].OldID != "a" || got[0].OldIndex != 0 ||
		got[0].ID != "e" || got[0].Index != 3 {
		t.Errorf("Expected a@0 replaced by e@3, got %+v", got[0])
	}
	if got[1].Type != ChangeScroll {
		t.Errorf("Expected trailing scroll, got %s", got[1].Type)
	}
	if s := ids(v.Items()); s != "b,c,d,e" {
		t.Errorf("Expected b,c,d,e, got %s", s)
	}

	// And back up.
	got = Collect(v.Changes(), func() {
		if err := v.SetOffset(0); err != nil {
			t.Fatalf("SetOffset failed: %v", err)
		}
	})
	if len(got) != 2 || got[0].Type != ChangeReplace {
		t.Fatalf("Expected replace,scroll, got %s", changeTypes(got))
	}
	if got[0].OldID != "e" || got[0].OldIndex != 3 || got[0].ID != "a" || got[0].Index != 0 {
		t.Errorf("Expected e@3 replaced by a@0, got %+v", got[0])
	}
}

// TestSetOffsetShortUpstream verifies boundary Remove/Insert when upstream
// cannot fill the slot
func TestSetOffsetShortUpstream(t *testing.T) {
	_, v := newWindowFixture(t, 4, "a", "b", "c", "d")

	// Scrolling down at the end: nothing enters below, the top row just
	// leaves.
	got := Collect(v.Changes(), func() {
		if err := v.SetOffset(1); err != nil {
			t.Fatalf("SetOffset failed: %v", err)
		}
	})
	if len(got) != 2 || got[0].Type != ChangeRemove || got[0].ID != "a" || got[0].Index != 0 {
		t.Fatalf("Expected remove of a at 0 then scroll, got %s", changeTypes(got))
	}
	if s := ids(v.Items()); s != "b,c,d" {
		t.Errorf("Expected b,c,d, got %s", s)
	}

	// Scrolling back up: the row re-enters at the top, nothing leaves below.
	got = Collect(v.Changes(), func() {
		if err := v.SetOffset(0); err != nil {
			t.Fatalf("SetOffset failed: %v", err)
		}
	})
	if len(got) != 2 || got[0].Type != ChangeInsert || got[0].ID != "a" || got[0].Index != 0 {
		t.Fatalf("Expected insert of a at 0 then scroll, got %s", changeTypes(got))
	}
	if got[0].NewlyAdded {
		t.Error("Expected re-entering row not newly-added")
	}
	if s := ids(v.Items()); s != "a,b,c,d" {
		t.Errorf("Expected a,b,c,d, got %s", s)
	}
}

// TestSetSizeGrowClampsToUpstream verifies growth over a short upstream
func TestSetSizeGrowClampsToUpstream(t *testing.T) {
	_, v := newWindowFixture(t, 2, "a", "b", "c")

	got := Collect(v.Changes(), func() {
		if err := v.SetSize(4); err != nil {
			t.Fatalf("SetSize failed: %v", err)
		}
	})

	// Only index 2 has an upstream item; index 3 does not.
	if len(got) != 2 {
		t.Fatalf("Expected insert,scroll, got %s", changeTypes(got))
	}
	if got[0].Type != ChangeInsert || got[0].ID != "c" || got[0].Index != 2 {
		t.Errorf("Expected insert of c at 2, got %+v", got[0])
	}
	if got[1].Type != ChangeScroll {
		t.Errorf("Expected trailing scroll, got %s", got[1].Type)
	}
	if s := ids(v.Items()); s != "a,b,c" {
		t.Errorf("Expected a,b,c, got %s", s)
	}
}

// TestSetSizeShrinkRemovesFromBoundary verifies shrink diffs
func TestSetSizeShrinkRemovesFromBoundary(t *testing.T) {
	_, v := newWindowFixture(t, 4, "a", "b", "c", "d", "e")

	got := Collect(v.Changes(), func() {
		if err := v.SetSize(2); err != nil {
			t.Fatalf("SetSize failed: %v", err)
		}
	})

	// Each newly hidden row is reported at the new boundary as rows peel
	// away one at a time.
	if len(got) != 3 {
		t.Fatalf("Expected remove,remove,scroll, got %s", changeTypes(got))
	}
	if got[0].Type != ChangeRemove || got[0].ID != "c" || got[0].Index != 2 {
		t.Errorf("Expected remove of c at 2, got %+v", got[0])
	}
	if got[1].Type != ChangeRemove || got[1].ID != "d" || got[1].Index != 2 {
		t.Errorf("Expected remove of d at 2, got %+v", got[1])
	}
	if s := ids(v.Items()); s != "a,b" {
		t.Errorf("Expected a,b, got %s", s)
	}
}

// TestWindowPassesResetAndScrollThrough verifies escape-hatch forwarding
func TestWindowPassesResetAndScrollThrough(t *testing.T) {
	c, v := newWindowFixture(t, 2, "a", "b", "c")

	got := Collect(v.Changes(), func() {
		err := c.AddRange([]*testItem{newItem("d", 3), newItem("e", 4)})
		if err != nil {
			t.Fatalf("AddRange failed: %v", err)
		}
	})
	if s := changeTypes(got); s != "reset,scroll" {
		t.Errorf("Expected reset,scroll, got %s", s)
	}
}
