package entity

// Address dirección postal completa de una parte.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Complete indica si la dirección tiene todos los campos obligatorios.
// Una factura solo puede emitirse (ISSUED/PAID) si emisor y receptor
// tienen dirección completa.
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.Zip != "" && a.Country != ""
}

// Party forma común de emisor y cliente: nombre, NIF/CIF, dirección y email.
type Party struct {
	Name    string  `json:"name"`
	TaxID   string  `json:"taxId"`
	Address Address `json:"address"`
	Email   string  `json:"email"`
}

// Client representa un cliente de facturación del usuario.
type Client struct {
	ID string `json:"id"`
	Party
}

// Issuer entidad emisora del usuario (su identidad de facturación).
// Un usuario puede tener varias; Alias es el nombre corto para mostrar.
type Issuer struct {
	ID    string `json:"id"`
	Alias string `json:"alias,omitempty"`
	Party
}
