package domain

import "time"

// Product is the canonical catalog record. IDs are assigned by the store and
// immutable afterwards.
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CostPrice    float64 `json:"cost_price"`
	SellingPrice float64 `json:"selling_price"`
	Stock        int     `json:"stock"`
}

// WithDefaultSellingPrice fills in the migration default for records persisted
// before selling prices existed: a missing (zero) selling price becomes
// costPrice * 1.5. Stores apply this on every read.
func (p Product) WithDefaultSellingPrice() Product {
	if p.SellingPrice == 0 {
		p.SellingPrice = p.CostPrice * 1.5
	}
	return p
}

type ProductCreateRequest struct {
	Name         *string  `json:"name" validate:"required"`
	CostPrice    *float64 `json:"cost_price" validate:"required,gte=0"`
	SellingPrice *float64 `json:"selling_price" validate:"required,gte=0"`
	Stock        *int     `json:"stock" validate:"required,gte=0"`
}

// ProductUpdateRequest is a full-record replace; there is no partial merge.
type ProductUpdateRequest struct {
	Name         string  `json:"name" validate:"required"`
	CostPrice    float64 `json:"cost_price" validate:"gte=0"`
	SellingPrice float64 `json:"selling_price" validate:"gte=0"`
	Stock        int     `json:"stock" validate:"gte=0"`
}

type RestockRequest struct {
	Amount *int `json:"amount" validate:"required,gt=0"`
}

// Sale is one ledger entry. ProductName and CostPrice are snapshots taken at
// recording time so later product edits or deletion never rewrite history.
// Profit is computed once at creation and stored, never rederived.
type Sale struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	CostPrice    float64   `json:"cost_price"`
	Quantity     int       `json:"quantity"`
	SellingPrice float64   `json:"selling_price"`
	Profit       float64   `json:"profit"`
	Date         time.Time `json:"date"`
}

type RecordSaleRequest struct {
	ProductID    string   `json:"product_id" validate:"required"`
	Quantity     *int     `json:"quantity" validate:"required,gt=0"`
	SellingPrice *float64 `json:"selling_price" validate:"required,gte=0"`
	Date         string   `json:"date" validate:"required"`
}

// DeleteSaleResult reports the two-phase outcome of a sale deletion. The sale
// removal always stands once it commits; StockRestored is false either when
// the product no longer exists (a silent no-op) or when the restore write
// failed, in which case Warning carries the partial-success message.
type DeleteSaleResult struct {
	SaleID        string `json:"sale_id"`
	ProductID     string `json:"product_id"`
	StockRestored bool   `json:"stock_restored"`
	Warning       string `json:"warning,omitempty"`
}

// Summary holds the aggregates for one filter window. Sales figures cover the
// filtered window; inventory figures always cover the full catalog.
type Summary struct {
	Filter              string    `json:"filter"`
	TotalSales          float64   `json:"total_sales"`
	TotalProfit         float64   `json:"total_profit"`
	Tithe               float64   `json:"tithe"`
	TotalInventoryValue float64   `json:"total_inventory_value"`
	PotentialRevenue    float64   `json:"potential_revenue"`
	PotentialProfit     float64   `json:"potential_profit"`
	ProductCount        int       `json:"product_count"`
	TotalStockUnits     int       `json:"total_stock_units"`
	LowStock            []Product `json:"low_stock"`
}

// RestockSuggestion is a derived, display-only reorder hint based on trailing
// sales velocity.
type RestockSuggestion struct {
	ProductID     string  `json:"product_id"`
	Name          string  `json:"name"`
	Stock         int     `json:"stock"`
	DailyVelocity float64 `json:"daily_velocity"`
	DaysOfStock   float64 `json:"days_of_stock"`
	SuggestedQty  int     `json:"suggested_qty"`
}

type RestockInsights struct {
	GeneratedAt string              `json:"generated_at"`
	WindowDays  int                 `json:"window_days"`
	Suggestions []RestockSuggestion `json:"suggestions"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)
