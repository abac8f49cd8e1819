package entities

// Category is the canonical facility category
type Category string

const (
	CategoryHospital      Category = "Hospital"
	CategoryClinic        Category = "Clinic"
	CategoryPharmacy      Category = "Pharmacy"
	CategoryMedicalCenter Category = "MedicalCenter"
	CategoryUnknown       Category = "Unknown"
)

// AddressNotAvailable is used when a provider has no address fields for a record
const AddressNotAvailable = "Address not available"

// FacilityRecord is the normalized output unit shared by every provider adapter
type FacilityRecord struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	Coordinate      Coordinate `json:"coordinate"`
	DistanceKm      *float64   `json:"distanceKm"`
	Phone           *string    `json:"phone"`
	Website         *string    `json:"website"`
	Category        Category   `json:"category"`
	Specialties     []string   `json:"specialties"`
	SourceProvider  string     `json:"sourceProvider"`
	Verified        bool       `json:"verified"`
	Rating          float64    `json:"rating"`
	OpenNowEstimate *bool      `json:"openNowEstimate"`

	// RatingSynthesized and PhoneSynthesized mark placeholder values generated
	// for providers that do not supply them.
	RatingSynthesized bool `json:"ratingSynthesized"`
	PhoneSynthesized  bool `json:"phoneSynthesized"`
}

// Distance returns the computed distance or -1 when it has not been attached yet
func (f *FacilityRecord) Distance() float64 {
	if f.DistanceKm == nil {
		return -1
	}
	return *f.DistanceKm
}
