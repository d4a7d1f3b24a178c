package orders

import (
	"time"

	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/pagination"
	"github.com/angelmondragon/marketcart/pkg/types"
	"github.com/google/uuid"
)

// Actor is the identity driving an order operation. ID is the account for
// buyers and admins and the vendor for vendors; system actors have no ID.
type Actor struct {
	Role enums.ActorRole
	ID   uuid.UUID
}

func Buyer(id uuid.UUID) Actor  { return Actor{Role: enums.ActorRoleBuyer, ID: id} }
func Vendor(id uuid.UUID) Actor { return Actor{Role: enums.ActorRoleVendor, ID: id} }
func Admin(id uuid.UUID) Actor  { return Actor{Role: enums.ActorRoleAdmin, ID: id} }

var (
	PaymentProcessor = Actor{Role: enums.ActorRolePayment}
	Carrier          = Actor{Role: enums.ActorRoleCarrier}
)

// LineItem is an order line as returned to clients.
type LineItem struct {
	CartItemID string `json:"cart_item_id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	LineTotal  int64  `json:"line_total"`
}

// Order is the client view of a vendor order.
type Order struct {
	ID               uuid.UUID                `json:"id"`
	OrderNumber      int64                    `json:"order_number"`
	CheckoutID       uuid.UUID                `json:"checkout_id"`
	BuyerID          uuid.UUID                `json:"buyer_id"`
	VendorID         uuid.UUID                `json:"vendor_id"`
	VendorName       string                   `json:"vendor_name"`
	Status           enums.OrderStatus        `json:"status"`
	Subtotal         int64                    `json:"subtotal"`
	ShippingFee      int64                    `json:"shipping_fee"`
	ShippingDiscount int64                    `json:"shipping_discount"`
	ProductDiscount  int64                    `json:"product_discount"`
	Total            int64                    `json:"total"`
	Discounts        []models.AppliedDiscount `json:"discounts"`
	Items            []LineItem               `json:"items"`
	ShippingAddress  types.Address            `json:"shipping_address"`
	PaymentMethod    enums.PaymentMethod      `json:"payment_method"`
	Note             *string                  `json:"note,omitempty"`
	Flagged          bool                     `json:"flagged"`
	FlagReason       *string                  `json:"flag_reason,omitempty"`
	PaidAt           *time.Time               `json:"paid_at,omitempty"`
	PaymentFailedAt  *time.Time               `json:"payment_failed_at,omitempty"`
	ShippedAt        *time.Time               `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time               `json:"delivered_at,omitempty"`
	CompletedAt      *time.Time               `json:"completed_at,omitempty"`
	CancelledAt      *time.Time               `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// FromModel converts the stored row into the client view.
func FromModel(m models.Order) Order {
	out := Order{
		ID:               m.ID,
		OrderNumber:      m.OrderNumber,
		CheckoutID:       m.CheckoutID,
		BuyerID:          m.BuyerID,
		VendorID:         m.VendorID,
		VendorName:       m.VendorName,
		Status:           m.Status,
		Subtotal:         m.Subtotal,
		ShippingFee:      m.ShippingFee,
		ShippingDiscount: m.ShippingDiscount,
		ProductDiscount:  m.ProductDiscount,
		Total:            m.Total,
		Discounts:        m.Discounts,
		Items:            make([]LineItem, 0, len(m.Items)),
		ShippingAddress:  m.ShippingAddress,
		PaymentMethod:    m.PaymentMethod,
		Note:             m.Note,
		Flagged:          m.Flagged,
		FlagReason:       m.FlagReason,
		PaidAt:           m.PaidAt,
		PaymentFailedAt:  m.PaymentFailedAt,
		ShippedAt:        m.ShippedAt,
		DeliveredAt:      m.DeliveredAt,
		CompletedAt:      m.CompletedAt,
		CancelledAt:      m.CancelledAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if out.Discounts == nil {
		out.Discounts = []models.AppliedDiscount{}
	}
	for _, item := range m.Items {
		out.Items = append(out.Items, LineItem{
			CartItemID: item.CartItemID,
			ProductID:  item.ProductID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			LineTotal:  item.LineTotal,
		})
	}
	return out
}

// StatusEvent describes a committed status change.
type StatusEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	BuyerID    uuid.UUID         `json:"-"`
	VendorID   uuid.UUID         `json:"-"`
	Previous   enums.OrderStatus `json:"previous_status"`
	Status     enums.OrderStatus `json:"status"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Filter narrows List results. After resumes a newest-first listing past the
// last row of the previous page.
type Filter struct {
	Status *enums.OrderStatus
	Limit  int
	After  *pagination.Cursor
}

// NextCursor returns the cursor of the page following list, or "" when list
// came back short of limit.
func NextCursor(list []Order, limit int) string {
	if len(list) == 0 || len(list) < pagination.NormalizeLimit(limit) {
		return ""
	}
	last := list[len(list)-1]
	return pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
}
