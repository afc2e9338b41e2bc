package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/swiftinvoice-api/internal/application/cache"
	"github.com/jhoicas/swiftinvoice-api/internal/application/dto"
	"github.com/jhoicas/swiftinvoice-api/internal/domain"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
	"github.com/jhoicas/swiftinvoice-api/pkg/eventbus"
	"github.com/jhoicas/swiftinvoice-api/pkg/logger"
)

const dateLayout = "2006-01-02"

// Valores por defecto del asistente cuando no hay plantilla ni tipos
// explícitos (IVA general y retención IRPF habituales de autónomo).
var (
	defaultVatRate  = decimal.NewFromInt(21)
	defaultIrpfRate = decimal.NewFromInt(15)
)

// InvoiceUseCase casos de uso de facturas: creación desde el asistente
// (con plantilla opcional), edición, transiciones de estado, listado y
// borrado. Todas las lecturas y escrituras de facturas pasan por la caché;
// el emisor y el cliente se copian como snapshot al crear, de modo que
// editarlos después no altera facturas históricas.
type InvoiceUseCase struct {
	cache     *cache.Service
	store     store.DocumentStore
	numbering *NumberingService
	bus       *eventbus.Bus
	log       *logger.Logger
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(c *cache.Service, st store.DocumentStore, numbering *NumberingService, bus *eventbus.Bus, log *logger.Logger) *InvoiceUseCase {
	return &InvoiceUseCase{cache: c, store: st, numbering: numbering, bus: bus, log: log}
}

// InvoiceEvent payload de los eventos de factura en el bus.
type InvoiceEvent struct {
	OwnerUID string
	ID       string
	Number   string
	Status   string
}

// Create crea una factura en DRAFT: resuelve emisor activo y cliente, aplica
// los valores por defecto de la plantilla si se indicó una, calcula totales
// y reserva el número del año de la fecha de facturación.
func (uc *InvoiceUseCase) Create(ctx context.Context, ownerUID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if in.ClientID == "" {
		return nil, domain.ErrInvalidInput
	}

	settings, err := uc.loadSettings(ctx, ownerUID)
	if err != nil {
		return nil, err
	}
	var issuer *entity.Issuer
	if in.IssuerID != "" {
		issuer = settings.IssuerByID(in.IssuerID)
	} else {
		issuer = settings.ActiveIssuer()
	}
	if issuer == nil {
		return nil, domain.ErrNoIssuer
	}

	client, err := uc.loadClient(ctx, ownerUID, in.ClientID)
	if err != nil {
		return nil, err
	}

	var tpl *entity.Template
	if in.TemplateID != "" {
		tpl, err = uc.loadTemplate(ctx, ownerUID, in.TemplateID)
		if err != nil {
			return nil, err
		}
	}

	date := in.Date
	if date == "" {
		date = time.Now().UTC().Format(dateLayout)
	}
	billingDate, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	dueDate := in.DueDate
	if dueDate == "" {
		dueDate = billingDate.AddDate(0, 0, 30).Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, dueDate); err != nil {
		return nil, domain.ErrInvalidInput
	}

	inv := &entity.Invoice{
		ID:        uuid.New().String(),
		Issuer:    issuer.Party, // snapshot: ediciones posteriores del emisor no afectan
		Recipient: client.Party, // snapshot del cliente
		ClientID:  client.ID,
		Date:      date,
		DueDate:   dueDate,
		Status:    entity.StatusDraft,
		Lang:      entity.LangES,
		VatRate:   defaultVatRate,
		IrpfRate:  defaultIrpfRate,
	}
	if tpl != nil {
		inv.TemplateID = tpl.ID
		inv.Lang = tpl.Lang
		inv.VatRate = tpl.VatRate
		inv.IrpfRate = tpl.IrpfRate
		inv.IsRecurring = tpl.IsRecurring
		inv.Notes = tpl.Notes
		for _, it := range tpl.DefaultItems {
			inv.Items = append(inv.Items, entity.InvoiceItem{
				ID:          uuid.New().String(),
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitCost:    it.UnitCost,
			})
		}
	}
	if in.Lang != "" {
		if in.Lang != entity.LangES && in.Lang != entity.LangEN {
			return nil, domain.ErrInvalidInput
		}
		inv.Lang = in.Lang
	}
	if in.VatRate != nil {
		inv.VatRate = *in.VatRate
	}
	if in.IrpfRate != nil {
		inv.IrpfRate = *in.IrpfRate
	}
	if in.IsRecurring != nil {
		inv.IsRecurring = *in.IsRecurring
	}
	if in.Notes != "" {
		inv.Notes = in.Notes
	}
	if len(in.Items) > 0 {
		inv.Items = nil
		for _, it := range in.Items {
			inv.Items = append(inv.Items, entity.InvoiceItem{
				ID:          uuid.New().String(),
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitCost:    it.UnitCost,
			})
		}
	}
	if len(inv.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	inv.RecalculateTotals()

	number, fallback := uc.numbering.Reserve(ctx, ownerUID, billingDate)
	inv.Number = number

	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	if err := uc.save(ctx, ownerUID, inv); err != nil {
		return nil, err
	}

	uc.bus.Publish(eventbus.TopicInvoiceCreated, InvoiceEvent{
		OwnerUID: ownerUID, ID: inv.ID, Number: inv.Number, Status: inv.Status,
	})

	resp := toInvoiceResponse(inv)
	resp.NumberFallback = fallback
	return resp, nil
}

// Update edita una factura existente: reemplaza los campos enviados,
// recalcula totales y normaliza el estado (ISSUED/PAID sin direcciones
// completas degrada a DRAFT).
func (uc *InvoiceUseCase) Update(ctx context.Context, ownerUID, id string, in dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	inv, err := uc.loadInvoice(ctx, ownerUID, id)
	if err != nil {
		return nil, err
	}

	if in.Date != "" {
		if _, err := time.Parse(dateLayout, in.Date); err != nil {
			return nil, domain.ErrInvalidInput
		}
		inv.Date = in.Date
	}
	if in.DueDate != "" {
		if _, err := time.Parse(dateLayout, in.DueDate); err != nil {
			return nil, domain.ErrInvalidInput
		}
		inv.DueDate = in.DueDate
	}
	if in.Lang != "" {
		if in.Lang != entity.LangES && in.Lang != entity.LangEN {
			return nil, domain.ErrInvalidInput
		}
		inv.Lang = in.Lang
	}
	if in.VatRate != nil {
		inv.VatRate = *in.VatRate
	}
	if in.IrpfRate != nil {
		inv.IrpfRate = *in.IrpfRate
	}
	if in.Notes != nil {
		inv.Notes = *in.Notes
	}
	if in.Items != nil {
		if len(in.Items) == 0 {
			return nil, domain.ErrInvalidInput
		}
		inv.Items = nil
		for _, it := range in.Items {
			inv.Items = append(inv.Items, entity.InvoiceItem{
				ID:          uuid.New().String(),
				Description: it.Description,
				Quantity:    it.Quantity,
				UnitCost:    it.UnitCost,
			})
		}
	}
	if in.Status != "" {
		if !entity.ValidStatus(in.Status) {
			return nil, domain.ErrInvalidInput
		}
		inv.Status = in.Status
	}

	inv.RecalculateTotals()
	coerced := inv.NormalizeStatus()
	if coerced {
		uc.log.Warn().
			Str("invoice_id", inv.ID).
			Str("number", inv.Number).
			Msg("estado degradado a DRAFT: direcciones de emisor o receptor incompletas")
	}

	inv.UpdatedAt = time.Now().UTC()
	if err := uc.save(ctx, ownerUID, inv); err != nil {
		return nil, err
	}
	uc.bus.Publish(eventbus.TopicInvoiceUpdated, InvoiceEvent{
		OwnerUID: ownerUID, ID: inv.ID, Number: inv.Number, Status: inv.Status,
	})

	resp := toInvoiceResponse(inv)
	resp.StatusCoerced = coerced
	return resp, nil
}

// UpdateStatus aplica una transición de estado con la misma guarda que
// Update: ISSUED/PAID exigen direcciones completas o se degrada a DRAFT.
func (uc *InvoiceUseCase) UpdateStatus(ctx context.Context, ownerUID, id, status string) (*dto.InvoiceResponse, error) {
	if !entity.ValidStatus(status) {
		return nil, domain.ErrInvalidInput
	}
	return uc.Update(ctx, ownerUID, id, dto.UpdateInvoiceRequest{Status: status})
}

// Get obtiene una factura por id.
func (uc *InvoiceUseCase) Get(ctx context.Context, ownerUID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.loadInvoice(ctx, ownerUID, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// GetEntity obtiene la entidad completa (para exportaciones PDF/Facturae).
func (uc *InvoiceUseCase) GetEntity(ctx context.Context, ownerUID, id string) (*entity.Invoice, error) {
	return uc.loadInvoice(ctx, ownerUID, id)
}

// List lista las facturas del usuario, opcionalmente filtradas por estado.
// force=true fuerza una recarga desde el store (reconciliación explícita).
func (uc *InvoiceUseCase) List(ctx context.Context, ownerUID, status string, force bool) ([]*dto.InvoiceResponse, error) {
	opts := cache.LoadOptions{Force: force}
	if status != "" {
		if !entity.ValidStatus(status) {
			return nil, domain.ErrInvalidInput
		}
		opts.Filter = &store.Filter{Field: "status", Value: status}
	}
	docs, err := uc.cache.LoadOnce(ctx, store.ColInvoices, ownerUID, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(docs))
	for _, doc := range docs {
		var inv entity.Invoice
		if err := json.Unmarshal(doc.Data, &inv); err != nil {
			return nil, fmt.Errorf("decodificar factura %s: %w", doc.Path.ID, err)
		}
		out = append(out, toInvoiceResponse(&inv))
	}
	return out, nil
}

// Delete borra una factura. El estado local se limpia antes de la escritura
// remota; si esta falla, el caller reconcilia con force en el siguiente listado.
func (uc *InvoiceUseCase) Delete(ctx context.Context, ownerUID, id string) error {
	inv, err := uc.loadInvoice(ctx, ownerUID, id)
	if err != nil {
		return err
	}
	if err := uc.cache.Delete(ctx, store.ColInvoices, ownerUID, id); err != nil {
		return err
	}
	uc.bus.Publish(eventbus.TopicInvoiceDeleted, InvoiceEvent{
		OwnerUID: ownerUID, ID: inv.ID, Number: inv.Number, Status: inv.Status,
	})
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (uc *InvoiceUseCase) save(ctx context.Context, ownerUID string, inv *entity.Invoice) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("serializar factura: %w", err)
	}
	return uc.cache.Save(ctx, store.ColInvoices, ownerUID, inv.ID, data)
}

func (uc *InvoiceUseCase) loadInvoice(ctx context.Context, ownerUID, id string) (*entity.Invoice, error) {
	doc, err := uc.cache.GetByID(ctx, store.ColInvoices, ownerUID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	var inv entity.Invoice
	if err := json.Unmarshal(doc.Data, &inv); err != nil {
		return nil, fmt.Errorf("decodificar factura %s: %w", id, err)
	}
	return &inv, nil
}

func (uc *InvoiceUseCase) loadClient(ctx context.Context, ownerUID, id string) (*entity.Client, error) {
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

func (uc *InvoiceUseCase) loadTemplate(ctx context.Context, ownerUID, id string) (*entity.Template, error) {
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

func (uc *InvoiceUseCase) loadSettings(ctx context.Context, ownerUID string) (*entity.Settings, error) {
	doc, err := uc.store.Get(ctx, store.NewPath(ownerUID, store.ColSettings, store.SettingsDocID))
	if err != nil {
		return nil, err
	}
	settings := entity.DefaultSettings()
	if doc != nil {
		if err := json.Unmarshal(doc.Data, &settings); err != nil {
			return nil, fmt.Errorf("decodificar settings: %w", err)
		}
	}
	return &settings, nil
}

func toPartyDTO(p entity.Party) dto.PartyDTO {
	return dto.PartyDTO{
		Name:  p.Name,
		TaxID: p.TaxID,
		Address: dto.AddressDTO{
			Street:  p.Address.Street,
			City:    p.Address.City,
			Zip:     p.Address.Zip,
			Country: p.Address.Country,
		},
		Email: p.Email,
	}
}

func toInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	return &dto.InvoiceResponse{
		ID:          inv.ID,
		Number:      inv.Number,
		Issuer:      toPartyDTO(inv.Issuer),
		Recipient:   toPartyDTO(inv.Recipient),
		ClientID:    inv.ClientID,
		TemplateID:  inv.TemplateID,
		Date:        inv.Date,
		DueDate:     inv.DueDate,
		Status:      inv.Status,
		Lang:        inv.Lang,
		Items:       inv.Items,
		Subtotal:    inv.Subtotal,
		VatRate:     inv.VatRate,
		VatAmount:   inv.VatAmount,
		IrpfRate:    inv.IrpfRate,
		IrpfAmount:  inv.IrpfAmount,
		Total:       inv.Total,
		IsRecurring: inv.IsRecurring,
		Notes:       inv.Notes,
		UpdatedAt:   inv.UpdatedAt,
	}
}
