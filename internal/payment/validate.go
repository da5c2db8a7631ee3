package payment

// ExpectedCurrency is the only currency this backend sells in:
// Telegram Stars.
const ExpectedCurrency = "XTR"

// RejectionError carries the user-presentable reason a payment was
// refused. The platform shows Message to the paying user.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	return "payment rejected: " + e.Message
}

var (
	errWrongCurrency  = &RejectionError{Message: "Неверная валюта."}
	errInvalidAmount  = &RejectionError{Message: "Некорректная сумма."}
	errAmountMismatch = &RejectionError{Message: "Несовпадение суммы."}
	errPayerMismatch  = &RejectionError{Message: "Платеж от другого пользователя."}
)

// Validate cross-checks a confirmed payment against the payload it was
// created for. Checks run in a fixed order and short-circuit on the
// first failure:
//
//  1. the reported currency is the expected one;
//  2. the payload amount is one of the sellable amounts (a payload forged
//     before verification could carry any number);
//  3. the charged total equals the payload amount;
//  4. the payer is the user the invoice was issued for.
//
// Validate has no side effects; crediting the ledger is the caller's job.
func Validate(p *Payload, allowedAmounts map[int64]struct{}, currency, expectedCurrency string, totalAmount int64, payerID int64) error {
	if currency != expectedCurrency {
		return errWrongCurrency
	}
	if _, ok := allowedAmounts[p.Amount]; !ok {
		return errInvalidAmount
	}
	if totalAmount != p.Amount {
		return errAmountMismatch
	}
	if payerID != p.UserID {
		return errPayerMismatch
	}
	return nil
}
