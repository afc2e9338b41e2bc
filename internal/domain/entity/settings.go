package entity

// Settings documento singleton por usuario: emisores, emisor activo y el
// contador de numeración por año (año → último número emitido).
// Las claves de YearCounter son el año en texto ("2025") por ser claves JSON.
type Settings struct {
	Issuers         []Issuer       `json:"issuers"`
	ActiveIssuerID  string         `json:"activeIssuerId"`
	DefaultCurrency string         `json:"defaultCurrency"`
	YearCounter     map[string]int `json:"yearCounter"`
}

// DefaultSettings valores iniciales al crear la cuenta.
func DefaultSettings() Settings {
	return Settings{
		Issuers:         []Issuer{},
		DefaultCurrency: "EUR",
		YearCounter:     map[string]int{},
	}
}

// IssuerByID busca un emisor por id. Devuelve nil si no existe.
func (s *Settings) IssuerByID(id string) *Issuer {
	for i := range s.Issuers {
		if s.Issuers[i].ID == id {
			return &s.Issuers[i]
		}
	}
	return nil
}

// ActiveIssuer devuelve el emisor activo, o nil si no hay ninguno.
func (s *Settings) ActiveIssuer() *Issuer {
	if s.ActiveIssuerID != "" {
		if iss := s.IssuerByID(s.ActiveIssuerID); iss != nil {
			return iss
		}
	}
	if len(s.Issuers) > 0 {
		return &s.Issuers[0]
	}
	return nil
}
