package domain

import apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"

// Error kinds. Each is an *AppError whose Code names the kind, so callers can
// match with errors.Is regardless of the message attached at the call site.
var (
	// Validation.
	ErrInvalidDiscount         = apperrors.New("INVALID_DISCOUNT", "discount value must be positive", apperrors.ErrInvalidInput)
	ErrDiscountExceedsLimit    = apperrors.New("DISCOUNT_EXCEEDS_LIMIT", "percentage discount cannot exceed 100", apperrors.ErrInvalidInput)
	ErrDiscountExceedsSubtotal = apperrors.New("DISCOUNT_EXCEEDS_SUBTOTAL", "discount cannot exceed the subtotal", apperrors.ErrInvalidInput)
	ErrInvalidQuantity         = apperrors.New("INVALID_QUANTITY", "quantity must be at least 1", apperrors.ErrInvalidInput)
	ErrAmountTooLarge          = apperrors.New("AMOUNT_TOO_LARGE", "amount exceeds the supported range", apperrors.ErrInvalidInput)
	ErrInvalidOrderType        = apperrors.New("INVALID_ORDER_TYPE", "order type must be dine-in, takeaway or delivery", apperrors.ErrInvalidInput)
	ErrTableRequired           = apperrors.New("TABLE_REQUIRED", "dine-in orders need a table number", apperrors.ErrInvalidInput)
	ErrEmptyOrder              = apperrors.New("EMPTY_ORDER", "order must contain at least one item", apperrors.ErrInvalidInput)
	ErrInvalidSplit            = apperrors.New("INVALID_SPLIT", "bill can be split between 2 and 10 payers", apperrors.ErrInvalidInput)
	ErrUnassignedLines         = apperrors.New("UNASSIGNED_LINES", "every line must be assigned to a payer", apperrors.ErrInvalidInput)
	ErrInsufficientAmount      = apperrors.New("INSUFFICIENT_AMOUNT", "received amount is less than the total", apperrors.ErrInvalidInput)
	ErrInvalidCardNumber       = apperrors.New("INVALID_CARD_NUMBER", "card number must be 16 digits", apperrors.ErrInvalidInput)
	ErrInvalidCVV              = apperrors.New("INVALID_CVV", "CVV must be 3 digits", apperrors.ErrInvalidInput)
	ErrInvalidUPIID            = apperrors.New("INVALID_UPI_ID", "UPI id must look like name@provider", apperrors.ErrInvalidInput)
	ErrInvalidBank             = apperrors.New("INVALID_BANK", "select a bank", apperrors.ErrInvalidInput)
	ErrInvalidOTP              = apperrors.New("INVALID_OTP", "OTP must be 6 digits", apperrors.ErrInvalidInput)
	ErrUnsupportedMethod       = apperrors.New("UNSUPPORTED_METHOD", "unsupported payment method", apperrors.ErrInvalidInput)

	// State conflicts.
	ErrInvalidTransition = apperrors.New("INVALID_TRANSITION", "order cannot make this transition", apperrors.ErrConflict)
	ErrAlreadyPaid       = apperrors.New("ALREADY_PAID", "order is already paid", apperrors.ErrConflict)
	ErrOrderNotPaid      = apperrors.New("ORDER_NOT_PAID", "receipt is only available for paid orders", apperrors.ErrConflict)
	ErrPaymentInProgress = apperrors.New("PAYMENT_IN_PROGRESS", "another payment for this order is in progress", apperrors.ErrConflict)
	ErrOrderNotFound     = apperrors.New("ORDER_NOT_FOUND", "order not found", apperrors.ErrNotFound)
	ErrItemNotFound      = apperrors.New("ITEM_NOT_FOUND", "menu item not found", apperrors.ErrNotFound)

	// Payment declined.
	ErrCardDeclined       = apperrors.New("CARD_DECLINED", "Card declined", apperrors.ErrPaymentFailed)
	ErrPaymentRejected    = apperrors.New("PAYMENT_REJECTED", "Payment rejected by processor", apperrors.ErrPaymentFailed)
	ErrGatewayUnavailable = apperrors.New("GATEWAY_UNAVAILABLE", "payment processor is unavailable", apperrors.ErrServiceUnavail)
)

// Errorf returns a copy of kind carrying a call-site message. The copy still
// matches kind under errors.Is.
func Errorf(kind *apperrors.AppError, message string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    kind.Code,
		Message: message,
		Status:  kind.Status,
		Err:     kind.Err,
	}
}

var paymentKinds = []*apperrors.AppError{
	ErrInsufficientAmount, ErrInvalidCardNumber, ErrInvalidCVV, ErrInvalidUPIID,
	ErrInvalidBank, ErrInvalidOTP, ErrUnsupportedMethod, ErrCardDeclined, ErrPaymentRejected,
}

// PaymentKind returns the payment error kind with the given code, as
// reported by a remote processor.
func PaymentKind(code string) (*apperrors.AppError, bool) {
	for _, k := range paymentKinds {
		if k.Code == code {
			return k, true
		}
	}
	return nil, false
}
