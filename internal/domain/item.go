package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrItemIDEmpty is returned when an item has no identifier.
var ErrItemIDEmpty = errors.New("item ID cannot be empty")

// Item is a reviewable piece of content: a material question or a kanji
// vocabulary entry. Its ID is the TargetID of the candidates scheduling it.
type Item struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Mode      Mode      `json:"mode"`
	Text      string    `json:"text"`
	Reading   string    `json:"reading,omitempty"`
	Meaning   string    `json:"meaning,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItem creates an item registered at now.
func NewItem(id, subject string, mode Mode, text string, now time.Time) (*Item, error) {
	item := &Item{
		ID:        id,
		Subject:   subject,
		Mode:      mode,
		Text:      text,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the Item has valid data.
func (i *Item) Validate() error {
	if i.ID == "" {
		return ErrItemIDEmpty
	}
	if i.Subject == "" {
		return ErrEmptySubject
	}
	if !i.Mode.Valid() {
		return ErrInvalidMode
	}
	if strings.TrimSpace(i.Text) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Printable reports whether the item carries every field its mode needs
// for display. Kanji entries need both a reading and a meaning.
func (i *Item) Printable() bool {
	if !i.Mode.RequiresPrintable() {
		return true
	}
	return strings.TrimSpace(i.Reading) != "" && strings.TrimSpace(i.Meaning) != ""
}
