package bookingapi

import (
	"fmt"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
)

var localDateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

type bookingDTO struct {
	ID         string            `json:"id"`
	Date       string            `json:"date"`
	Cancelled  bool              `json:"cancelled"`
	Service    domain.Service    `json:"service"`
	Barbershop domain.Barbershop `json:"barbershop"`
}

func (d bookingDTO) toDomain(loc *time.Location) (domain.Booking, error) {
	date, err := parseInstant(d.Date, loc)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("booking %s: %w", d.ID, err)
	}
	return domain.Booking{
		ID:         d.ID,
		Date:       date,
		Cancelled:  d.Cancelled,
		Service:    d.Service,
		Barbershop: d.Barbershop,
	}, nil
}

// parseInstant accepts RFC 3339 instants and, like a browser's Date parser,
// offset-less local date-times interpreted in loc.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid booking date %q", s)
}
