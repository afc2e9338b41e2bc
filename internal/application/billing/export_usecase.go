package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
)

// InvoicePDFGenerator genera la representación imprimible de una factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, inv *entity.Invoice) ([]byte, error)
}

// FacturaeBuilder genera el XML Facturae (sin firmar) de una factura.
type FacturaeBuilder interface {
	BuildFacturae(inv *entity.Invoice) ([]byte, error)
}

// ExportUseCase exportaciones de factura: PDF para impresión/envío y XML
// Facturae para la administración. Cualquier estado es exportable; un DRAFT
// imprime igual que una emitida, la guarda de direcciones vive en el estado.
type ExportUseCase struct {
	invoices *InvoiceUseCase
	pdf      InvoicePDFGenerator
	facturae FacturaeBuilder
}

// NewExportUseCase construye el caso de uso inyectando los generadores.
func NewExportUseCase(invoices *InvoiceUseCase, pdf InvoicePDFGenerator, facturae FacturaeBuilder) *ExportUseCase {
	return &ExportUseCase{invoices: invoices, pdf: pdf, facturae: facturae}
}

// DownloadInvoicePDF genera el PDF de la factura y un nombre de archivo
// derivado del número.
func (uc *ExportUseCase) DownloadInvoicePDF(ctx context.Context, ownerUID, invoiceID string) ([]byte, string, error) {
	inv, err := uc.invoices.GetEntity(ctx, ownerUID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	data, err := uc.pdf.GenerateInvoicePDF(ctx, inv)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return data, fmt.Sprintf("factura_%s.pdf", inv.Number), nil
}

// DownloadFacturae genera el XML Facturae de la factura.
func (uc *ExportUseCase) DownloadFacturae(ctx context.Context, ownerUID, invoiceID string) ([]byte, string, error) {
	inv, err := uc.invoices.GetEntity(ctx, ownerUID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	data, err := uc.facturae.BuildFacturae(inv)
	if err != nil {
		return nil, "", fmt.Errorf("facturae: generación fallida: %w", err)
	}
	return data, fmt.Sprintf("factura_%s.xml", inv.Number), nil
}
