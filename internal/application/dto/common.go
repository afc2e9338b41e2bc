package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AddressDTO dirección postal en peticiones y respuestas.
type AddressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// PartyDTO forma común de emisor y cliente.
type PartyDTO struct {
	Name    string     `json:"name"`
	TaxID   string     `json:"taxId"`
	Address AddressDTO `json:"address"`
	Email   string     `json:"email"`
}
