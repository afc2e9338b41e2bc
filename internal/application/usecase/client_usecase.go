package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/swiftinvoice-api/internal/application/cache"
	"github.com/jhoicas/swiftinvoice-api/internal/application/dto"
	"github.com/jhoicas/swiftinvoice-api/internal/domain"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
)

// ClientUseCase casos de uso para clientes de facturación. Las facturas
// llevan snapshot del cliente: editar o borrar un cliente no altera
// facturas ya creadas.
type ClientUseCase struct {
	cache *cache.Service
}

// NewClientUseCase construye el caso de uso.
func NewClientUseCase(c *cache.Service) *ClientUseCase {
	return &ClientUseCase{cache: c}
}

// Create crea un nuevo cliente.
func (uc *ClientUseCase) Create(ctx context.Context, ownerUID string, in dto.ClientRequest) (*dto.ClientResponse, error) {
	if in.Name == "" || in.TaxID == "" {
		return nil, domain.ErrInvalidInput
	}
	client := &entity.Client{
		ID:    uuid.New().String(),
		Party: toParty(in),
	}
	if err := uc.save(ctx, ownerUID, client); err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// Update edita un cliente existente.
func (uc *ClientUseCase) Update(ctx context.Context, ownerUID, id string, in dto.ClientRequest) (*dto.ClientResponse, error) {
	if in.Name == "" || in.TaxID == "" {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.get(ctx, ownerUID, id)
	if err != nil {
		return nil, err
	}
	existing.Party = toParty(in)
	if err := uc.save(ctx, ownerUID, existing); err != nil {
		return nil, err
	}
	return toClientResponse(existing), nil
}

// Get obtiene un cliente por id.
func (uc *ClientUseCase) Get(ctx context.Context, ownerUID, id string) (*dto.ClientResponse, error) {
	client, err := uc.get(ctx, ownerUID, id)
	if err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

// List lista los clientes del usuario. force=true recarga desde el store.
func (uc *ClientUseCase) List(ctx context.Context, ownerUID string, force bool) ([]*dto.ClientResponse, error) {
	docs, err := uc.cache.LoadOnce(ctx, store.ColClients, ownerUID, cache.LoadOptions{Force: force})
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ClientResponse, 0, len(docs))
	for _, doc := range docs {
		var client entity.Client
		if err := json.Unmarshal(doc.Data, &client); err != nil {
			return nil, fmt.Errorf("decodificar cliente %s: %w", doc.Path.ID, err)
		}
		resp := toClientResponse(&client)
		resp.UpdatedAt = doc.UpdatedAt
		out = append(out, resp)
	}
	return out, nil
}

// Delete borra un cliente. Las facturas existentes conservan su snapshot.
func (uc *ClientUseCase) Delete(ctx context.Context, ownerUID, id string) error {
	if _, err := uc.get(ctx, ownerUID, id); err != nil {
		return err
	}
	return uc.cache.Delete(ctx, store.ColClients, ownerUID, id)
}

func (uc *ClientUseCase) get(ctx context.Context, ownerUID, id string) (*entity.Client, error) {
	doc, err := uc.cache.GetByID(ctx, store.ColClients, ownerUID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	var client entity.Client
	if err := json.Unmarshal(doc.Data, &client); err != nil {
		return nil, fmt.Errorf("decodificar cliente %s: %w", id, err)
	}
	return &client, nil
}

func (uc *ClientUseCase) save(ctx context.Context, ownerUID string, client *entity.Client) error {
	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("serializar cliente: %w", err)
	}
	return uc.cache.Save(ctx, store.ColClients, ownerUID, client.ID, data)
}

func toParty(in dto.ClientRequest) entity.Party {
	return entity.Party{
		Name:  in.Name,
		TaxID: in.TaxID,
		Address: entity.Address{
			Street:  in.Address.Street,
			City:    in.Address.City,
			Zip:     in.Address.Zip,
			Country: in.Address.Country,
		},
		Email: in.Email,
	}
}

func toClientResponse(c *entity.Client) *dto.ClientResponse {
	return &dto.ClientResponse{
		ID:    c.ID,
		Name:  c.Name,
		TaxID: c.TaxID,
		Address: dto.AddressDTO{
			Street:  c.Address.Street,
			City:    c.Address.City,
			Zip:     c.Address.Zip,
			Country: c.Address.Country,
		},
		Email: c.Email,
	}
}
