package facilities

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
)

// categoryTable maps provider-native tags (OSM amenity/healthcare values,
// Google place types, Nominatim types) to canonical categories.
var categoryTable = map[string]entities.Category{
	"hospital":          entities.CategoryHospital,
	"hospitals":         entities.CategoryHospital,
	"emergency":         entities.CategoryHospital,
	"clinic":            entities.CategoryClinic,
	"doctors":           entities.CategoryClinic,
	"doctor":            entities.CategoryClinic,
	"dentist":           entities.CategoryClinic,
	"physiotherapist":   entities.CategoryClinic,
	"pharmacy":          entities.CategoryPharmacy,
	"chemist":           entities.CategoryPharmacy,
	"drugstore":         entities.CategoryPharmacy,
	"medical_center":    entities.CategoryMedicalCenter,
	"medical_centre":    entities.CategoryMedicalCenter,
	"health_centre":     entities.CategoryMedicalCenter,
	"health_center":     entities.CategoryMedicalCenter,
	"centre":            entities.CategoryMedicalCenter,
	"health":            entities.CategoryMedicalCenter,
	"healthcare":        entities.CategoryMedicalCenter,
	"medicalcenter":     entities.CategoryMedicalCenter,
	"diagnostic_centre": entities.CategoryMedicalCenter,
}

// MapCategory returns the canonical category for the first tag found in the table,
// or CategoryUnknown when none match.
func MapCategory(tags ...string) entities.Category {
	for _, tag := range tags {
		key := strings.ToLower(strings.TrimSpace(tag))
		if key == "" {
			continue
		}
		if category, ok := categoryTable[key]; ok {
			return category
		}
	}
	return entities.CategoryUnknown
}

// AddressParts are the structured address fields, in synthesis order
type AddressParts struct {
	Number     string
	Street     string
	Locality   string
	Region     string
	PostalCode string
}

// SynthesizeAddress comma-joins the non-empty fields in order
func SynthesizeAddress(parts AddressParts) string {
	fields := []string{parts.Number, parts.Street, parts.Locality, parts.Region, parts.PostalCode}
	present := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return entities.AddressNotAvailable
	}
	return strings.Join(present, ", ")
}

// RecordID builds a provider-prefixed id
func RecordID(provider, nativeID string) string {
	return provider + ":" + nativeID
}

// Synthesizer generates placeholder ratings and phone numbers. Output depends
// only on the record id, so repeated runs produce identical values.
type Synthesizer struct {
	PhonePrefix string
}

// NewSynthesizer creates a synthesizer producing numbers with the given prefix
func NewSynthesizer(phonePrefix string) *Synthesizer {
	if phonePrefix == "" {
		phonePrefix = "+91-11"
	}
	return &Synthesizer{PhonePrefix: phonePrefix}
}

func (s *Synthesizer) rng(id, salt string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(salt))
	h.Write([]byte(id))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Rating returns a value in [3.5, 4.9] with one decimal
func (s *Synthesizer) Rating(id string) float64 {
	r := s.rng(id, "rating")
	return float64(35+r.IntN(15)) / 10
}

// Phone returns a placeholder phone number
func (s *Synthesizer) Phone(id string) string {
	r := s.rng(id, "phone")
	return fmt.Sprintf("%s-%04d-%04d", s.PhonePrefix, r.IntN(10000), r.IntN(10000))
}

// fillSynthesized sets rating and phone when the provider supplied neither
func (s *Synthesizer) fillSynthesized(rec *entities.FacilityRecord) {
	if s == nil {
		return
	}
	if rec.Rating == 0 {
		rec.Rating = s.Rating(rec.ID)
		rec.RatingSynthesized = true
	}
	if rec.Phone == nil {
		phone := s.Phone(rec.ID)
		rec.Phone = &phone
		rec.PhoneSynthesized = true
	}
}

func optionalString(values ...string) *string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	return nil
}

func splitSpecialties(raw string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ReplaceAll(part, "_", " "))
		}
	}
	return out
}

func boolPtr(b bool) *bool {
	return &b
}

func fallbackName(name string, category entities.Category) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if category == entities.CategoryUnknown {
		return "Unnamed facility"
	}
	return "Unnamed " + string(category)
}
