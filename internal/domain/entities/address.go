package entities

// AddressInfo represents a reverse geocoded address
type AddressInfo struct {
	FormattedAddress string     `json:"formattedAddress"`
	HouseNumber      string     `json:"houseNumber,omitempty"`
	Street           string     `json:"street,omitempty"`
	Locality         string     `json:"locality,omitempty"`
	Region           string     `json:"region,omitempty"`
	PostalCode       string     `json:"postalCode,omitempty"`
	Country          string     `json:"country,omitempty"`
	Coordinate       Coordinate `json:"coordinate"`
	Provider         string     `json:"provider"`
}
