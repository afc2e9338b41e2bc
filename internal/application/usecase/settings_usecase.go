package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/swiftinvoice-api/internal/application/dto"
	"github.com/jhoicas/swiftinvoice-api/internal/domain"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
)

// SettingsUseCase casos de uso sobre el documento de configuración del
// usuario. Opera contra el store directamente, sin pasar por la caché: la
// numeración escribe el mismo documento en transacción y una copia cacheada
// del contador quedaría obsoleta al emitir la primera factura.
type SettingsUseCase struct {
	store store.DocumentStore
}

// NewSettingsUseCase construye el caso de uso.
func NewSettingsUseCase(st store.DocumentStore) *SettingsUseCase {
	return &SettingsUseCase{store: st}
}

// issuersPatch proyección parcial para mutaciones de emisores. Se escribe
// con merge para no pisar yearCounter, que mantiene la numeración.
type issuersPatch struct {
	Issuers        []entity.Issuer `json:"issuers"`
	ActiveIssuerID string          `json:"activeIssuerId"`
}

// Get devuelve la configuración del usuario, creándola con los valores por
// defecto si aún no existe.
func (uc *SettingsUseCase) Get(ctx context.Context, ownerUID string) (*dto.SettingsResponse, error) {
	settings, err := uc.load(ctx, ownerUID)
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(settings), nil
}

// AddIssuer añade un emisor. El primero que se crea queda como activo.
func (uc *SettingsUseCase) AddIssuer(ctx context.Context, ownerUID string, in dto.IssuerRequest) (*dto.SettingsResponse, error) {
	if in.Name == "" || in.TaxID == "" {
		return nil, domain.ErrInvalidInput
	}
	issuer := entity.Issuer{
		ID:    uuid.New().String(),
		Alias: in.Alias,
		Party: entity.Party{
			Name:  in.Name,
			TaxID: in.TaxID,
			Address: entity.Address{
				Street:  in.Address.Street,
				City:    in.Address.City,
				Zip:     in.Address.Zip,
				Country: in.Address.Country,
			},
			Email: in.Email,
		},
	}
	return uc.mutateIssuers(ctx, ownerUID, func(s *entity.Settings) error {
		s.Issuers = append(s.Issuers, issuer)
		if s.ActiveIssuerID == "" {
			s.ActiveIssuerID = issuer.ID
		}
		return nil
	})
}

// UpdateIssuer edita un emisor existente. Las facturas emitidas conservan
// el snapshot del emisor con el que se crearon.
func (uc *SettingsUseCase) UpdateIssuer(ctx context.Context, ownerUID, issuerID string, in dto.IssuerRequest) (*dto.SettingsResponse, error) {
	if in.Name == "" || in.TaxID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.mutateIssuers(ctx, ownerUID, func(s *entity.Settings) error {
		iss := s.IssuerByID(issuerID)
		if iss == nil {
			return domain.ErrNotFound
		}
		iss.Alias = in.Alias
		iss.Name = in.Name
		iss.TaxID = in.TaxID
		iss.Address = entity.Address{
			Street:  in.Address.Street,
			City:    in.Address.City,
			Zip:     in.Address.Zip,
			Country: in.Address.Country,
		}
		iss.Email = in.Email
		return nil
	})
}

// DeleteIssuer elimina un emisor. Si era el activo, pasa a serlo el primero
// restante, o ninguno.
func (uc *SettingsUseCase) DeleteIssuer(ctx context.Context, ownerUID, issuerID string) (*dto.SettingsResponse, error) {
	return uc.mutateIssuers(ctx, ownerUID, func(s *entity.Settings) error {
		idx := -1
		for i := range s.Issuers {
			if s.Issuers[i].ID == issuerID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return domain.ErrNotFound
		}
		s.Issuers = append(s.Issuers[:idx], s.Issuers[idx+1:]...)
		if s.ActiveIssuerID == issuerID {
			s.ActiveIssuerID = ""
			if len(s.Issuers) > 0 {
				s.ActiveIssuerID = s.Issuers[0].ID
			}
		}
		return nil
	})
}

// SetActiveIssuer cambia el emisor activo.
func (uc *SettingsUseCase) SetActiveIssuer(ctx context.Context, ownerUID string, in dto.ActiveIssuerRequest) (*dto.SettingsResponse, error) {
	return uc.mutateIssuers(ctx, ownerUID, func(s *entity.Settings) error {
		if s.IssuerByID(in.IssuerID) == nil {
			return domain.ErrNotFound
		}
		s.ActiveIssuerID = in.IssuerID
		return nil
	})
}

// mutateIssuers lee-modifica-escribe los emisores en transacción, para no
// perder mutaciones concurrentes, y escribe solo issuers/activeIssuerId.
func (uc *SettingsUseCase) mutateIssuers(ctx context.Context, ownerUID string, mutate func(*entity.Settings) error) (*dto.SettingsResponse, error) {
	p := store.NewPath(ownerUID, store.ColSettings, store.SettingsDocID)
	var result entity.Settings
	err := uc.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(ctx, p)
		if err != nil {
			return err
		}
		settings := entity.DefaultSettings()
		if doc != nil {
			if err := json.Unmarshal(doc.Data, &settings); err != nil {
				return fmt.Errorf("decodificar settings: %w", err)
			}
		}
		if err := mutate(&settings); err != nil {
			return err
		}
		patch, err := json.Marshal(issuersPatch{
			Issuers:        settings.Issuers,
			ActiveIssuerID: settings.ActiveIssuerID,
		})
		if err != nil {
			return err
		}
		result = settings
		return tx.Set(ctx, p, patch, true)
	})
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(&result), nil
}

func (uc *SettingsUseCase) load(ctx context.Context, ownerUID string) (*entity.Settings, error) {
	p := store.NewPath(ownerUID, store.ColSettings, store.SettingsDocID)
	doc, err := uc.store.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	settings := entity.DefaultSettings()
	if doc == nil {
		data, err := json.Marshal(settings)
		if err != nil {
			return nil, err
		}
		if err := uc.store.Set(ctx, p, data, false); err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err := json.Unmarshal(doc.Data, &settings); err != nil {
		return nil, fmt.Errorf("decodificar settings: %w", err)
	}
	return &settings, nil
}

func toSettingsResponse(s *entity.Settings) *dto.SettingsResponse {
	out := &dto.SettingsResponse{
		Issuers:         make([]dto.IssuerResponse, 0, len(s.Issuers)),
		ActiveIssuerID:  s.ActiveIssuerID,
		DefaultCurrency: s.DefaultCurrency,
		YearCounter:     s.YearCounter,
	}
	if out.YearCounter == nil {
		out.YearCounter = map[string]int{}
	}
	for _, iss := range s.Issuers {
		out.Issuers = append(out.Issuers, dto.IssuerResponse{
			ID:    iss.ID,
			Alias: iss.Alias,
			Name:  iss.Name,
			TaxID: iss.TaxID,
			Address: dto.AddressDTO{
				Street:  iss.Address.Street,
				City:    iss.Address.City,
				Zip:     iss.Address.Zip,
				Country: iss.Address.Country,
			},
			Email: iss.Email,
		})
	}
	return out
}
