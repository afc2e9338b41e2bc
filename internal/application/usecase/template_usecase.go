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

// Tipos de plantilla admitidos.
var templateTypes = map[string]bool{
	"RENT": true, "CLASS": true, "SERVICE": true, "OTHER": true,
}

// TemplateUseCase casos de uso para plantillas de factura.
type TemplateUseCase struct {
	cache *cache.Service
}

// NewTemplateUseCase construye el caso de uso.
func NewTemplateUseCase(c *cache.Service) *TemplateUseCase {
	return &TemplateUseCase{cache: c}
}

// Create crea una plantilla.
func (uc *TemplateUseCase) Create(ctx context.Context, ownerUID string, in dto.TemplateRequest) (*dto.TemplateResponse, error) {
	if err := validateTemplate(in); err != nil {
		return nil, err
	}
	tpl := fromTemplateRequest(in)
	tpl.ID = uuid.New().String()
	if err := uc.save(ctx, ownerUID, tpl); err != nil {
		return nil, err
	}
	return toTemplateResponse(tpl), nil
}

// Update edita una plantilla existente.
func (uc *TemplateUseCase) Update(ctx context.Context, ownerUID, id string, in dto.TemplateRequest) (*dto.TemplateResponse, error) {
	if err := validateTemplate(in); err != nil {
		return nil, err
	}
	if _, err := uc.get(ctx, ownerUID, id); err != nil {
		return nil, err
	}
	tpl := fromTemplateRequest(in)
	tpl.ID = id
	if err := uc.save(ctx, ownerUID, tpl); err != nil {
		return nil, err
	}
	return toTemplateResponse(tpl), nil
}

// Get obtiene una plantilla por id.
func (uc *TemplateUseCase) Get(ctx context.Context, ownerUID, id string) (*dto.TemplateResponse, error) {
	tpl, err := uc.get(ctx, ownerUID, id)
	if err != nil {
		return nil, err
	}
	return toTemplateResponse(tpl), nil
}

// List lista las plantillas del usuario.
func (uc *TemplateUseCase) List(ctx context.Context, ownerUID string, force bool) ([]*dto.TemplateResponse, error) {
	docs, err := uc.cache.LoadOnce(ctx, store.ColTemplates, ownerUID, cache.LoadOptions{Force: force})
	if err != nil {
		return nil, err
	}
	out := make([]*dto.TemplateResponse, 0, len(docs))
	for _, doc := range docs {
		var tpl entity.Template
		if err := json.Unmarshal(doc.Data, &tpl); err != nil {
			return nil, fmt.Errorf("decodificar plantilla %s: %w", doc.Path.ID, err)
		}
		out = append(out, toTemplateResponse(&tpl))
	}
	return out, nil
}

// Delete borra una plantilla. Las facturas derivadas conservan sus datos.
func (uc *TemplateUseCase) Delete(ctx context.Context, ownerUID, id string) error {
	if _, err := uc.get(ctx, ownerUID, id); err != nil {
		return err
	}
	return uc.cache.Delete(ctx, store.ColTemplates, ownerUID, id)
}

func (uc *TemplateUseCase) get(ctx context.Context, ownerUID, id string) (*entity.Template, error) {
	doc, err := uc.cache.GetByID(ctx, store.ColTemplates, ownerUID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	var tpl entity.Template
	if err := json.Unmarshal(doc.Data, &tpl); err != nil {
		return nil, fmt.Errorf("decodificar plantilla %s: %w", id, err)
	}
	return &tpl, nil
}

func (uc *TemplateUseCase) save(ctx context.Context, ownerUID string, tpl *entity.Template) error {
	data, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("serializar plantilla: %w", err)
	}
	return uc.cache.Save(ctx, store.ColTemplates, ownerUID, tpl.ID, data)
}

func validateTemplate(in dto.TemplateRequest) error {
	if in.Name == "" {
		return domain.ErrInvalidInput
	}
	if in.Type != "" && !templateTypes[in.Type] {
		return domain.ErrInvalidInput
	}
	if in.Lang != "" && in.Lang != entity.LangES && in.Lang != entity.LangEN {
		return domain.ErrInvalidInput
	}
	return nil
}

func fromTemplateRequest(in dto.TemplateRequest) *entity.Template {
	tpl := &entity.Template{
		Name:        in.Name,
		Type:        in.Type,
		Lang:        in.Lang,
		VatRate:     in.VatRate,
		IrpfRate:    in.IrpfRate,
		IsRecurring: in.IsRecurring,
		Notes:       in.Notes,
	}
	if tpl.Type == "" {
		tpl.Type = "OTHER"
	}
	if tpl.Lang == "" {
		tpl.Lang = entity.LangES
	}
	for _, it := range in.DefaultItems {
		tpl.DefaultItems = append(tpl.DefaultItems, entity.TemplateItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
		})
	}
	return tpl
}

func toTemplateResponse(tpl *entity.Template) *dto.TemplateResponse {
	out := &dto.TemplateResponse{
		ID:          tpl.ID,
		Name:        tpl.Name,
		Type:        tpl.Type,
		Lang:        tpl.Lang,
		VatRate:     tpl.VatRate,
		IrpfRate:    tpl.IrpfRate,
		IsRecurring: tpl.IsRecurring,
		Notes:       tpl.Notes,
	}
	for _, it := range tpl.DefaultItems {
		out.DefaultItems = append(out.DefaultItems, dto.TemplateItemDTO{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
		})
	}
	return out
}
