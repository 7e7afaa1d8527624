// Package orderstatus derives what an order looks like on an orders board: its
// display label, the tab bucket it falls into, and the running counts per bucket.
package orderstatus

import "agrichain/internal/models"

// Color is the severity color a label is rendered with.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorPurple Color = "purple"
	ColorGray   Color = "gray"
)

// Label is the human-readable state of an order.
type Label struct {
	Text  string `json:"label"`
	Color Color  `json:"color"`
}

var (
	LabelPending    = Label{Text: "Pending", Color: ColorYellow}
	LabelInDelivery = Label{Text: "In Delivery", Color: ColorBlue}
	LabelDelivered  = Label{Text: "Delivered", Color: ColorGreen}
	LabelRejected   = Label{Text: "Rejected", Color: ColorRed}
	LabelRefunded   = Label{Text: "Refunded", Color: ColorPurple}
	LabelUnknown    = Label{Text: "Unknown", Color: ColorGray}
)

// Display combines the two status enums into one label. The first matching rule wins.
func Display(status models.OrderStatus, delivery models.DeliveryStatus) Label {
	switch {
	case status == models.OrderStatusPending:
		return LabelPending
	case status == models.OrderStatusAccepted && delivery == models.DeliveryStatusInDelivery:
		return LabelInDelivery
	case status == models.OrderStatusCompleted && delivery == models.DeliveryStatusDelivered:
		return LabelDelivered
	case status == models.OrderStatusRejected:
		return LabelRejected
	case status == models.OrderStatusRefunded:
		return LabelRefunded
	}
	return LabelUnknown
}
