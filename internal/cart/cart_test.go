package cart

import (
	"testing"

	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/google/uuid"
)

var (
	vendorA = uuid.MustParse("0b7a3c6e-1111-4a3b-9c1d-000000000001")
	vendorB = uuid.MustParse("0b7a3c6e-2222-4a3b-9c1d-000000000002")
	vendorC = uuid.MustParse("0b7a3c6e-3333-4a3b-9c1d-000000000003")
)

func line(id string, vendor uuid.UUID, price int64, qty int, selected bool) LineItem {
	return LineItem{
		ID:        id,
		ProductID: "p-" + id,
		VendorID:  vendor,
		Name:      "item " + id,
		UnitPrice: price,
		Quantity:  qty,
		Stock:     10,
		Selected:  selected,
	}
}

func TestGroupByVendorKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	items := []LineItem{
		line("1", vendorB, 100, 1, true),
		line("2", vendorA, 100, 1, true),
		line("3", vendorB, 100, 1, false),
		line("4", vendorC, 100, 1, true),
		line("5", vendorA, 100, 1, true),
	}

	groups := GroupByVendor(items)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	wantOrder := []uuid.UUID{vendorB, vendorA, vendorC}
	for i, g := range groups {
		if g.VendorID != wantOrder[i] {
			t.Fatalf("group %d: expected vendor %s got %s", i, wantOrder[i], g.VendorID)
		}
	}
	if groups[0].Items[0].ID != "1" || groups[0].Items[1].ID != "3" {
		t.Fatalf("items should keep input order inside a group: %+v", groups[0].Items)
	}

	seen := map[string]int{}
	for _, g := range groups {
		for _, item := range g.Items {
			if item.VendorID != g.VendorID {
				t.Fatalf("item %s placed under wrong vendor", item.ID)
			}
			seen[item.ID]++
		}
	}
	if len(seen) != len(items) {
		t.Fatalf("expected every item exactly once, got %v", seen)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("item %s appears %d times", id, n)
		}
	}
}

func TestGroupByVendorEmpty(t *testing.T) {
	t.Parallel()

	if groups := GroupByVendor(nil); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestAllSelected(t *testing.T) {
	t.Parallel()

	if (VendorGroup{}).AllSelected() {
		t.Fatal("empty group must not report all selected")
	}
	g := VendorGroup{Items: []LineItem{line("1", vendorA, 1, 1, true), line("2", vendorA, 1, 1, true)}}
	if !g.AllSelected() {
		t.Fatal("expected all selected")
	}
	g.Items[1].Selected = false
	if g.AllSelected() {
		t.Fatal("expected partial selection")
	}
	if !g.HasSelection() {
		t.Fatal("expected group to have a selection")
	}
}

func TestSetQuantityBounds(t *testing.T) {
	t.Parallel()

	items := []LineItem{line("1", vendorA, 100, 2, true)}

	for _, qty := range []int{0, 11} {
		_, err := SetQuantity(items, "1", qty)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("qty %d: expected validation error, got %v", qty, err)
		}
	}

	updated, err := SetQuantity(items, "1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated[0].Quantity != 10 {
		t.Fatalf("expected quantity 10 got %d", updated[0].Quantity)
	}
	if items[0].Quantity != 2 {
		t.Fatal("input slice must not be mutated")
	}

	if _, err := SetQuantity(items, "missing", 1); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSelectVendorIsIdempotent(t *testing.T) {
	t.Parallel()

	items := []LineItem{
		line("1", vendorA, 100, 1, false),
		line("2", vendorB, 100, 1, false),
		line("3", vendorA, 100, 1, true),
	}
	once := SelectVendor(items, vendorA, true)
	twice := SelectVendor(once, vendorA, true)
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("select vendor not idempotent at %d", i)
		}
	}
	if !once[0].Selected || !once[2].Selected || once[1].Selected {
		t.Fatalf("unexpected selection %+v", once)
	}

	off := SelectVendor(once, vendorA, false)
	if len(SelectedItems(off)) != 0 {
		t.Fatal("expected nothing selected after deselecting vendor A")
	}
}

func TestRemoveAndSetSelected(t *testing.T) {
	t.Parallel()

	items := []LineItem{line("1", vendorA, 1, 1, true), line("2", vendorA, 1, 1, true)}
	rest, err := Remove(items, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "2" || len(items) != 2 {
		t.Fatalf("unexpected remove result %+v", rest)
	}

	toggled, err := SetSelected(items, "2", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toggled[1].Selected || !items[1].Selected {
		t.Fatal("expected a new slice with item 2 deselected")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	ok := []LineItem{line("1", vendorA, 100, 1, true)}
	if err := Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	over := []LineItem{line("1", vendorA, 100, 11, true)}
	if err := Validate(over); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected stock validation error, got %v", err)
	}

	dup := []LineItem{line("1", vendorA, 100, 1, true), line("1", vendorB, 100, 1, true)}
	if err := Validate(dup); err == nil {
		t.Fatal("expected duplicate id error")
	}
}
