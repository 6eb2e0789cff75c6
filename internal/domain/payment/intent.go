// internal/domain/payment/intent.go
package payment

// Intent is the provider-neutral view of a payment intent.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// Intent statuses we act on. Anything other than succeeded means the
// payment is not complete.
const (
	StatusSucceeded = "succeeded"
)

// Succeeded reports whether the intent completed successfully.
func (i *Intent) Succeeded() bool {
	return i.Status == StatusSucceeded
}
