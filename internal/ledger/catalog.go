package ledger

import (
	"fmt"
	"slices"
	"strings"
)

// Service is a messaging or web service a rented number can be used with.
type Service string

const (
	ServiceTelegram  Service = "Telegram"
	ServiceWhatsApp  Service = "WhatsApp"
	ServiceInstagram Service = "Instagram"
	ServiceFacebook  Service = "Facebook"
	ServiceVK        Service = "VK"
	ServiceGmail     Service = "Gmail"
	ServiceUber      Service = "Uber"
	ServiceAirbnb    Service = "Airbnb"
)

// Services is the fixed catalog, in display order.
var Services = []Service{
	ServiceTelegram,
	ServiceWhatsApp,
	ServiceInstagram,
	ServiceFacebook,
	ServiceVK,
	ServiceGmail,
	ServiceUber,
	ServiceAirbnb,
}

// RentalHours are the rental periods a listing may offer.
var RentalHours = []int{1, 4, 12, 24}

// ParseService resolves a catalog entry case-insensitively.
func ParseService(s string) (Service, error) {
	s = strings.TrimSpace(s)
	for _, svc := range Services {
		if strings.EqualFold(string(svc), s) {
			return svc, nil
		}
	}

	return "", fmt.Errorf("%w: unknown service %q", ErrInvalidInput, s)
}

// Valid reports whether s belongs to the catalog.
func (s Service) Valid() bool {
	return slices.Contains(Services, s)
}

// ValidDuration reports whether hours is one of the allowed rental periods.
func ValidDuration(hours int) bool {
	return slices.Contains(RentalHours, hours)
}
