package dto

import "time"

// ClientRequest alta o edición de un cliente.
type ClientRequest struct {
	Name    string     `json:"name"`
	TaxID   string     `json:"taxId"`
	Address AddressDTO `json:"address"`
	Email   string     `json:"email"`
}

// ClientResponse cliente en respuestas.
type ClientResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	TaxID     string     `json:"taxId"`
	Address   AddressDTO `json:"address"`
	Email     string     `json:"email"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
