package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/X-culture24/my-farm/pkg/errors"
)

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SalePending    SaleStatus = "pending"
	SaleConfirmed  SaleStatus = "confirmed"
	SaleProcessing SaleStatus = "processing"
	SaleShipped    SaleStatus = "shipped"
	SaleDelivered  SaleStatus = "delivered"
	SaleCancelled  SaleStatus = "cancelled"
	SaleRefunded   SaleStatus = "refunded"
)

// PaymentStatus tracks how much of a sale has been paid.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCreditCard    PaymentMethod = "credit_card"
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
	PaymentCheck         PaymentMethod = "check"
	PaymentDigitalWallet PaymentMethod = "digital_wallet"
)

// CustomerType segments buyers.
type CustomerType string

const (
	CustomerIndividual CustomerType = "individual"
	CustomerBusiness   CustomerType = "business"
	CustomerWholesale  CustomerType = "wholesale"
	CustomerRetail     CustomerType = "retail"
)

// DeliveryMethod is how goods reach the customer.
type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryDelivery DeliveryMethod = "delivery"
	DeliveryShipping DeliveryMethod = "shipping"
)

// ItemSource says which catalog a line item comes from. Only animal items
// draw down the inventory ledger.
type ItemSource string

const (
	ItemFarm   ItemSource = "farm"
	ItemAnimal ItemSource = "animal"
)

// Customer is the buyer on a sale.
type Customer struct {
	Name    string       `json:"name"`
	Email   string       `json:"email"`
	Phone   string       `json:"phone"`
	Address string       `json:"address"`
	Type    CustomerType `json:"customerType"`
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ProductID   string          `json:"productId"`
	ProductType ItemSource      `json:"productType"`
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Discount    decimal.Decimal `json:"discount"`
	Notes       string          `json:"notes,omitempty"`
}

// OrderDetails covers ordering and delivery.
type OrderDetails struct {
	OrderDate       time.Time      `json:"orderDate"`
	DeliveryMethod  DeliveryMethod `json:"deliveryMethod"`
	DeliveryDate    *time.Time     `json:"deliveryDate,omitempty"`
	DeliveryAddress string         `json:"deliveryAddress,omitempty"`
	DeliveryNotes   string         `json:"deliveryNotes,omitempty"`
}

// Payment is the running payment state of a sale. Amount always equals the
// sale total and DueAmount is Amount - PaidAmount.
type Payment struct {
	Method        PaymentMethod   `json:"method"`
	Status        PaymentStatus   `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	DueAmount     decimal.Decimal `json:"dueAmount"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
}

// Totals are derived from the items plus tax and shipping.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// Sale is a customer order placed with a farm.
type Sale struct {
	ID           string       `json:"id"`
	OrderNumber  string       `json:"orderNumber"`
	FarmID       string       `json:"farmId"`
	Customer     Customer     `json:"customer"`
	Items        []SaleItem   `json:"items"`
	OrderDetails OrderDetails `json:"orderDetails"`
	Payment      Payment      `json:"payment"`
	Totals       Totals       `json:"totals"`
	Status       SaleStatus   `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	CreatedBy    string       `json:"createdBy,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// MoneyPlaces is the number of decimal places money is stored with.
const MoneyPlaces = 2

// LineTotal is quantity x unitPrice rounded to cents.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(MoneyPlaces)
}

// ComputeTotals derives totals from items. Each item's TotalPrice is
// quantity x unitPrice in cents; discounts are absolute per-item amounts.
func ComputeTotals(items []SaleItem, tax, shipping decimal.Decimal, currency string) Totals {
	if currency == "" {
		currency = DefaultCurrency
	}
	t := Totals{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Tax:      tax,
		Shipping: shipping,
		Currency: currency,
	}
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(LineTotal(it.Quantity, it.UnitPrice))
		t.Discount = t.Discount.Add(it.Discount)
	}
	t.Total = t.Subtotal.Add(tax).Add(shipping).Sub(t.Discount)
	return t
}

// Recalculate recomputes item totals, sale totals and the payment figures
// from the items. Running it twice yields the same sale.
func (s *Sale) Recalculate() {
	for i := range s.Items {
		s.Items[i].TotalPrice = LineTotal(s.Items[i].Quantity, s.Items[i].UnitPrice)
	}
	s.Totals = ComputeTotals(s.Items, s.Totals.Tax, s.Totals.Shipping, s.Totals.Currency)
	s.Payment.Amount = s.Totals.Total
	s.Payment.DueAmount = s.Totals.Total.Sub(s.Payment.PaidAmount)
	s.Payment.Status = DerivePaymentStatus(s.Payment.PaidAmount, s.Totals.Total)
}

// DerivePaymentStatus maps paid against total.
func DerivePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsPositive() && paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// ValidateTotals rejects a negative total or an overpaid sale.
func (s *Sale) ValidateTotals() error {
	if s.Totals.Total.IsNegative() {
		return apperrors.InvalidInput("discounts exceed the sale total")
	}
	if s.Payment.PaidAmount.IsNegative() {
		return apperrors.InvalidPayment("paid amount cannot be negative")
	}
	if s.Payment.PaidAmount.GreaterThan(s.Totals.Total) {
		return apperrors.InvalidPayment(fmt.Sprintf("paid amount %s exceeds sale total %s",
			s.Payment.PaidAmount, s.Totals.Total))
	}
	return nil
}

// AddPayment records a payment. The running paid amount may never exceed
// the total, and cancelled or refunded sales take no payments. A pending
// sale is confirmed once fully paid.
func (s *Sale) AddPayment(amount decimal.Decimal, method PaymentMethod, transactionID string, now time.Time) error {
	if !amount.IsPositive() {
		return apperrors.InvalidInput("payment amount must be greater than zero")
	}
	if s.Status == SaleCancelled || s.Status == SaleRefunded {
		return apperrors.InvalidPayment(fmt.Sprintf("cannot add payment to a %s sale", s.Status))
	}

	paid := s.Payment.PaidAmount.Add(amount)
	if paid.GreaterThan(s.Totals.Total) {
		return apperrors.InvalidPayment(fmt.Sprintf("payment of %s exceeds amount due %s",
			amount, s.Totals.Total.Sub(s.Payment.PaidAmount)))
	}

	at := now.UTC()
	s.Payment.PaidAmount = paid
	s.Payment.DueAmount = s.Totals.Total.Sub(paid)
	s.Payment.PaymentDate = &at
	if method != "" {
		s.Payment.Method = method
	}
	if transactionID != "" {
		s.Payment.TransactionID = transactionID
	}
	s.Payment.Status = DerivePaymentStatus(paid, s.Totals.Total)

	if s.Payment.Status == PaymentPaid && s.Status == SalePending {
		s.Status = SaleConfirmed
	}
	s.UpdatedAt = at
	return nil
}

var transitions = map[SaleStatus][]SaleStatus{
	SalePending:    {SaleConfirmed, SaleCancelled, SaleRefunded},
	SaleConfirmed:  {SaleProcessing, SaleCancelled, SaleRefunded},
	SaleProcessing: {SaleShipped, SaleCancelled, SaleRefunded},
	SaleShipped:    {SaleDelivered, SaleRefunded},
	SaleDelivered:  {},
	SaleCancelled:  {},
	SaleRefunded:   {},
}

// IsValidSaleStatus reports whether status is a known sale status.
func IsValidSaleStatus(status SaleStatus) bool {
	_, ok := transitions[status]
	return ok
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to SaleStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from status.
func (s SaleStatus) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// TransitionTo moves the sale to status. Reaching delivered stamps the
// delivery date. A non-empty notes replaces the sale notes.
func (s *Sale) TransitionTo(status SaleStatus, notes string, now time.Time) error {
	if !CanTransition(s.Status, status) {
		return apperrors.InvalidTransition(string(s.Status), string(status))
	}
	at := now.UTC()
	s.Status = status
	if status == SaleDelivered {
		s.OrderDetails.DeliveryDate = &at
	}
	if notes != "" {
		s.Notes = notes
	}
	s.UpdatedAt = at
	return nil
}

// Cancel cancels the sale and replaces its notes with reason. Shipped,
// delivered and terminal sales cannot be cancelled. Inventory is not returned.
func (s *Sale) Cancel(reason string, now time.Time) error {
	switch {
	case s.Status == SaleShipped || s.Status == SaleDelivered:
		return apperrors.TransitionRejected("cannot cancel a shipped or delivered sale")
	case !CanTransition(s.Status, SaleCancelled):
		return apperrors.InvalidTransition(string(s.Status), string(SaleCancelled))
	}
	at := now.UTC()
	s.Status = SaleCancelled
	s.Notes = reason
	s.UpdatedAt = at
	return nil
}

// AnimalItems returns the items that draw down the inventory ledger.
func (s *Sale) AnimalItems() []SaleItem {
	out := make([]SaleItem, 0, len(s.Items))
	for _, it := range s.Items {
		if it.ProductType == ItemAnimal {
			out = append(out, it)
		}
	}
	return out
}
