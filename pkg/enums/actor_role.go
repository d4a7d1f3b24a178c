package enums

import "fmt"

// ActorRole identifies who is driving an order operation. Buyer, vendor and
// admin come from the access token; payment and carrier are system callbacks.
type ActorRole string

const (
	ActorRoleBuyer   ActorRole = "buyer"
	ActorRoleVendor  ActorRole = "vendor"
	ActorRoleAdmin   ActorRole = "admin"
	ActorRolePayment ActorRole = "payment"
	ActorRoleCarrier ActorRole = "carrier"
)

var validActorRoles = []ActorRole{
	ActorRoleBuyer,
	ActorRoleVendor,
	ActorRoleAdmin,
	ActorRolePayment,
	ActorRoleCarrier,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsSystem reports whether the role belongs to a machine callback rather than a user.
func (r ActorRole) IsSystem() bool {
	return r == ActorRolePayment || r == ActorRoleCarrier
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
