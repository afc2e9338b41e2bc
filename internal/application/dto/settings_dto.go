package dto

// IssuerRequest alta o edición de un emisor en la configuración.
type IssuerRequest struct {
	Alias   string     `json:"alias"`
	Name    string     `json:"name"`
	TaxID   string     `json:"taxId"`
	Address AddressDTO `json:"address"`
	Email   string     `json:"email"`
}

// IssuerResponse emisor en respuestas.
type IssuerResponse struct {
	ID      string     `json:"id"`
	Alias   string     `json:"alias,omitempty"`
	Name    string     `json:"name"`
	TaxID   string     `json:"taxId"`
	Address AddressDTO `json:"address"`
	Email   string     `json:"email"`
}

// ActiveIssuerRequest cambio de emisor activo.
type ActiveIssuerRequest struct {
	IssuerID string `json:"issuerId"`
}

// SettingsResponse configuración del usuario.
type SettingsResponse struct {
	Issuers         []IssuerResponse `json:"issuers"`
	ActiveIssuerID  string           `json:"activeIssuerId"`
	DefaultCurrency string           `json:"defaultCurrency"`
	YearCounter     map[string]int   `json:"yearCounter"`
}
