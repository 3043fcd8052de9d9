// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// PurchaseEvent is published after the Hotmart webhook handler has applied
// (or failed to apply) a subscription mutation. It carries enough for
// downstream consumers to audit and reconcile without querying the primary
// database.
type PurchaseEvent struct {
	Transaction string `json:"transaction"`
	Event       string `json:"event"`
	BuyerEmail  string `json:"buyer_email"`
	UserID      uint64 `json:"user_id,omitempty"`
	Status      string `json:"status"`
	Applied     bool   `json:"applied"`
	Error       string `json:"error,omitempty"`
	ReceivedAt  string `json:"received_at"`
}
