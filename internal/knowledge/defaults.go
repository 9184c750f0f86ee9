package knowledge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFallback is used when a message matches no entry.
const DefaultFallback = "Sorry, I didn't quite get that. I can help you request an appointment or answer questions about our opening hours, treatments and location."

// DefaultServices are the treatments offered by the studio.
var DefaultServices = []string{"Facial", "Massage", "Manicure", "Pedicure"}

var defaultEntries = []FAQEntry{
	{
		ID:       1,
		Category: "Opening hours",
		Title:    "Opening hours",
		Keywords: []string{"opening", "hours", "open", "when", "closed", "today"},
		Answer:   "We are here for you Monday to Saturday from 9:00 to 19:00. Sunday is our day of rest.",
	},
	{
		ID:       2,
		Category: "Booking",
		Title:    "Requesting an appointment",
		Keywords: []string{"schedule", "slot", "availability", "available", "visit", "date"},
		Answer:   "To request an appointment just write \"book an appointment\" and I will collect your details step by step.",
	},
	{
		ID:       3,
		Category: "Treatments",
		Title:    "Treatments",
		Keywords: []string{"treatments", "treatment", "services", "offer", "facial", "massage", "manicure", "pedicure"},
		Answer:   "We offer a wide range of treatments including facials, massages, manicures and pedicures. If you would like to book one, just let me know.",
	},
	{
		ID:       4,
		Category: "Contact",
		Title:    "Address",
		Keywords: []string{"address", "where", "location", "find", "directions", "located"},
		Answer:   "You can find us at Wellness Street 7, 12345 Berlin, right on the market square.",
	},
}

// Default returns the studio's built-in knowledge base.
func Default() *Base {
	b, err := New(defaultEntries, DefaultFallback, DefaultServices)
	if err != nil {
		panic(fmt.Sprintf("knowledge: invalid default knowledge base: %v", err))
	}
	return b
}

type fileFormat struct {
	Fallback string     `yaml:"fallback"`
	Services []string   `yaml:"services"`
	Entries  []FAQEntry `yaml:"entries"`
}

// Parse builds a Base from a YAML document. Missing fallback or services
// fall back to the built-in values.
func Parse(data []byte) (*Base, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("knowledge: parse yaml: %w", err)
	}
	if strings.TrimSpace(f.Fallback) == "" {
		f.Fallback = DefaultFallback
	}
	if len(f.Services) == 0 {
		f.Services = DefaultServices
	}
	return New(f.Entries, f.Fallback, f.Services)
}

// LoadFile reads a YAML knowledge base from path. An empty path yields the
// built-in base.
func LoadFile(path string) (*Base, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", path, err)
	}
	return Parse(data)
}
