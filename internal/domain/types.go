package domain

import "strings"

// Order lifecycle states as the backend reports them.
const (
	StatusNew         = "new order"
	StatusPending     = "pending order"
	StatusSetDelivery = "set delivery date"
	StatusAccepted    = "accepted"
	StatusRejected    = "rejected"
)

// Product types as stored in the catalog.
const (
	ProductTypeConsumable = "consumable"
	ProductTypeOther      = "other"
)

// Product is a catalog entry for a site. Read-only on this side; the
// backend owns it.
type Product struct {
	ID        string `json:"_id"`
	ProductID string `json:"product_id"`
	Name      string `json:"product_name"`
	ImageURL  string `json:"product_image"`
	Type      string `json:"product_type"`
}

// Site is a physical cleaning-service location with its own catalog.
type Site struct {
	ID               string   `json:"site_id"`
	SiteName         string   `json:"site_name"`
	OrganizationName string   `json:"organization_name"`
	Location         string   `json:"location"`
	ProductList      []string `json:"product_list"`
}

// SiteInfo is the site snapshot embedded in an order.
type SiteInfo struct {
	SiteID           string `json:"site_id"`
	SiteName         string `json:"site_name"`
	OrganizationName string `json:"organization_name"`
	Location         string `json:"location"`
}

// OrderItem is one requested product line within a submitted order.
type OrderItem struct {
	ProductID           string   `json:"product_id"`
	ProductName         string   `json:"product_name"`
	ProductType         string   `json:"product_type"`
	Quantity            int      `json:"quantity"`
	ItemAvailableOnSite int      `json:"item_available_on_site"`
	ItemAlreadyOnSite   bool     `json:"item_already_on_site"`
	ItemPhotos          []string `json:"item_photos"`
}

// Order is a backend-assigned order record.
type Order struct {
	ID           string      `json:"_id"`
	OrderNumber  string      `json:"order_number"`
	Status       string      `json:"order_status"`
	OrderDate    string      `json:"order_date"`
	CleanerEmail string      `json:"cleaner_email"`
	SiteInfo     SiteInfo    `json:"site_info"`
	Items        []OrderItem `json:"order_items"`
	RoomPhotos   []string    `json:"room_photos"`
	Notes        string      `json:"notes,omitempty"`
	DeliveryDate string      `json:"delivery_date,omitempty"`
}

// HasStatus compares order status case-insensitively; the backend is not
// consistent about casing.
func (o *Order) HasStatus(status string) bool {
	return strings.EqualFold(o.Status, status)
}
