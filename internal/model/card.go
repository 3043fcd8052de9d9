package model

import "time"

// Card categories served by the app's audio-card screens.
const (
	CategoryAnimals = "animals"
	CategoryColors  = "colors"
	CategoryFood    = "food"
	CategoryObjects = "objects"
)

// Card represents a row in the `cards` table: one interactive audio card
// with its name in the three supported languages and pointers to the hosted
// image and audio assets.
type Card struct {
	ID        uint64    // cards.id
	Category  string    // cards.category
	NamePT    string    // cards.name_pt
	NameEN    string    // cards.name_en
	NameES    string    // cards.name_es
	ImageURL  string    // cards.image_url
	AudioURL  string    // cards.audio_url
	IsActive  bool      // cards.is_active
	CreatedAt time.Time // cards.created_at
	UpdatedAt time.Time // cards.updated_at
}

// Purchase records one Hotmart webhook notification in the `purchases`
// table for the admin back-office. Rows are append-only; the webhook may
// redeliver, so (transaction, event) pairs can repeat and readers should
// treat the newest row as current.
type Purchase struct {
	ID          uint64    // purchases.id
	Transaction string    // purchases.transaction (Hotmart transaction code)
	Event       string    // purchases.event (raw event name)
	BuyerEmail  string    // purchases.buyer_email
	Status      string    // purchases.status (mapped subscription status)
	CreatedAt   time.Time // purchases.created_at
}
