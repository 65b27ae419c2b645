// Package pdf renders the printable invoice copy attached at generation time.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const renderTimeout = 30 * time.Second

// InvoiceDocument is the data the invoice template renders
type InvoiceDocument struct {
	UID          string
	CustomerName string
	AccountCode  string
	Period       string // e.g. "March 2026"
	Amount       string
	Currency     string
	DueDate      string
	IssuedAt     string
	PayDial      string // filled from the renderer's pay code
}

// InvoiceRenderer produces the invoice PDF from an HTML template via the
// Chrome DevTools protocol.
type InvoiceRenderer struct {
	tmpl        *template.Template
	payCode     string
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewInvoiceRenderer creates the renderer. remoteURL points at a running
// Chrome instance; empty launches a headless one. payCode is the market's
// mobile-money dial string with an {account} marker.
func NewInvoiceRenderer(remoteURL, payCode string, logger *zap.Logger) (*InvoiceRenderer, error) {
	tmpl, err := template.New("invoice").Parse(invoiceHTML)
	if err != nil {
		return nil, fmt.Errorf("parsing invoice template: %w", err)
	}

	r := &InvoiceRenderer{tmpl: tmpl, payCode: payCode, logger: logger}
	if remoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), remoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-first-run", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("no-sandbox", true),
		)
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return r, nil
}

// Render produces the PDF bytes for one invoice
func (r *InvoiceRenderer) Render(ctx context.Context, doc InvoiceDocument) ([]byte, error) {
	doc.PayDial = strings.ReplaceAll(r.payCode, "{account}", doc.AccountCode)
	var html bytes.Buffer
	if err := r.tmpl.Execute(&html, doc); err != nil {
		return nil, fmt.Errorf("rendering invoice template: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx)
	defer browserCancel()

	var pdfData []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html.String()).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27). // A4
				WithPaperHeight(11.69).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("invoice rendering timed out after %v", renderTimeout)
		}
		r.logger.Error("invoice rendering failed", zap.String("uid", doc.UID), zap.Error(err))
		return nil, fmt.Errorf("invoice rendering failed: %w", err)
	}
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("generated PDF is empty")
	}
	return pdfData, nil
}

// Close releases the browser allocator
func (r *InvoiceRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

const invoiceHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, sans-serif; color: #1a1a1a; margin: 40px; }
  .header { display: flex; justify-content: space-between; border-bottom: 3px solid #0a7d32; padding-bottom: 16px; }
  .brand { font-size: 24px; font-weight: bold; color: #0a7d32; }
  .uid { font-family: monospace; font-size: 14px; color: #555; }
  table { width: 100%; border-collapse: collapse; margin-top: 32px; }
  th { text-align: left; background: #f0f5f1; padding: 8px; }
  td { padding: 8px; border-bottom: 1px solid #e0e0e0; }
  .total { font-size: 18px; font-weight: bold; text-align: right; margin-top: 24px; }
  .footer { margin-top: 48px; font-size: 12px; color: #777; }
</style>
</head>
<body>
  <div class="header">
    <div class="brand">High Prosper</div>
    <div class="uid">{{.UID}}</div>
  </div>
  <table>
    <tr><th>Customer</th><td>{{.CustomerName}}</td></tr>
    <tr><th>Account</th><td>{{.AccountCode}}</td></tr>
    <tr><th>Billing period</th><td>{{.Period}}</td></tr>
    <tr><th>Due date</th><td>{{.DueDate}}</td></tr>
    <tr><th>Issued</th><td>{{.IssuedAt}}</td></tr>
  </table>
  <div class="total">Amount due: {{.Amount}} {{.Currency}}</div>
  <div class="footer">Pay with mobile money: dial {{.PayDial}}. Questions? Dial *775#.</div>
</body>
</html>`
