package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOfferTitleEmpty   = errors.New("offer title cannot be empty")
	ErrOfferTitleTooLong = errors.New("offer title is too long (max 200 chars)")
	ErrOfferDescTooLong  = errors.New("offer description is too long (max 2000 chars)")
	ErrInvalidDate       = errors.New("invalid date format (must be YYYY-MM-DD)")
	ErrInvalidTime       = errors.New("invalid time format (must be HH:MM 24h)")
	ErrInvalidOfferID    = errors.New("invalid offer id")
)

var timeRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	MaxTitleLen = 200
	MaxDescLen  = 2000
)

type Offer struct {
	ID          string    `json:"id" db:"id"`
	Date        string    `json:"date" db:"offer_date"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	Time        *string   `json:"time" db:"start_time"`
	Location    *string   `json:"location" db:"location"`
	Supervisor  *string   `json:"supervisor" db:"supervisor"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	Visible     bool      `json:"visible" db:"visible"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// OfferDetails holds the user-editable fields of an offer. Empty strings
// are stored as NULL.
type OfferDetails struct {
	Title       string
	Description string
	Time        string
	Location    string
	Supervisor  string
	ImageURL    string
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (d OfferDetails) validate() error {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return ErrOfferTitleEmpty
	}
	if len(title) > MaxTitleLen {
		return ErrOfferTitleTooLong
	}
	if len(strings.TrimSpace(d.Description)) > MaxDescLen {
		return ErrOfferDescTooLong
	}

	t := strings.TrimSpace(d.Time)
	if t != "" && !timeRegex.MatchString(t) {
		return ErrInvalidTime
	}
	return nil
}

func NewOffer(date string, details OfferDetails) (*Offer, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	if err := details.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	o := &Offer{
		ID:        uuid.New().String(),
		Date:      date,
		Visible:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.apply(details)

	return o, nil
}

func (o *Offer) apply(d OfferDetails) {
	o.Title = strings.TrimSpace(d.Title)
	o.Description = optional(d.Description)
	o.Time = optional(d.Time)
	o.Location = optional(d.Location)
	o.Supervisor = optional(d.Supervisor)
	o.ImageURL = optional(d.ImageURL)
}

// Update replaces every editable field. A nil visible keeps the offer visible.
func (o *Offer) Update(details OfferDetails, visible *bool) error {
	if err := details.validate(); err != nil {
		return err
	}

	o.apply(details)
	o.Visible = true
	if visible != nil {
		o.Visible = *visible
	}
	o.UpdatedAt = time.Now().UTC()

	return nil
}

func (o *Offer) HasImage() bool {
	return o.ImageURL != nil && *o.ImageURL != ""
}

// ImagePathFromURL returns the object path of a stored image, which is the
// last segment of its public URL.
func ImagePathFromURL(url string) string {
	url = strings.TrimSpace(url)
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
