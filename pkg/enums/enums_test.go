package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, status := range OrderStatuses() {
		got, err := ParseOrderStatus(string(status))
		if err != nil {
			t.Fatalf("parse %s: %v", status, err)
		}
		if got != status {
			t.Fatalf("expected %s got %s", status, got)
		}
	}
	if _, err := ParseOrderStatus("refunded"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusCompleted: true,
		OrderStatusCancelled: true,
	}
	for _, status := range OrderStatuses() {
		if status.IsTerminal() != terminal[status] {
			t.Fatalf("unexpected terminal flag for %s", status)
		}
	}
}

func TestDiscountCategoryFamily(t *testing.T) {
	cases := map[DiscountCategory]DiscountFamily{
		DiscountCategoryShipping:          DiscountFamilyShipping,
		DiscountCategoryPercentageProduct: DiscountFamilyProduct,
		DiscountCategorySpecialProduct:    DiscountFamilyProduct,
	}
	for category, family := range cases {
		if got := category.Family(); got != family {
			t.Fatalf("%s: expected family %s got %s", category, family, got)
		}
	}
}

func TestActorRoleSystem(t *testing.T) {
	if !ActorRolePayment.IsSystem() || !ActorRoleCarrier.IsSystem() {
		t.Fatal("expected payment and carrier to be system actors")
	}
	if ActorRoleBuyer.IsSystem() || ActorRoleAdmin.IsSystem() {
		t.Fatal("buyer and admin are not system actors")
	}
	if _, err := ParseActorRole("agent"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if _, err := ParsePaymentMethod("cash_on_delivery"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParsePaymentMethod("ach"); err == nil {
		t.Fatal("expected unknown method to fail")
	}
	if !PaymentMethodCreditCard.IsValid() {
		t.Fatal("credit card should be valid")
	}
}

func TestParsePushEventType(t *testing.T) {
	got, err := ParsePushEventType("order:updated")
	if err != nil || got != PushEventOrderUpdated {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
	if PushEventType("order:created").IsValid() {
		t.Fatal("unexpected event type reported valid")
	}
}
