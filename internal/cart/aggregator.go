package cart

import "github.com/google/uuid"

// GroupByVendor partitions items by vendor. Groups appear in the order their
// vendor is first seen and items keep their input order inside a group.
func GroupByVendor(items []LineItem) []VendorGroup {
	index := make(map[uuid.UUID]int, len(items))
	groups := make([]VendorGroup, 0)
	for _, item := range items {
		pos, ok := index[item.VendorID]
		if !ok {
			pos = len(groups)
			index[item.VendorID] = pos
			groups = append(groups, VendorGroup{
				VendorID:   item.VendorID,
				VendorName: item.VendorName,
			})
		}
		groups[pos].Items = append(groups[pos].Items, item)
	}
	return groups
}

// VendorIDs lists the distinct vendors of the groups in group order.
func VendorIDs(groups []VendorGroup) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.VendorID)
	}
	return ids
}
