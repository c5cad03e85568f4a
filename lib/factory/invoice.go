package factory

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/document"
	"github.com/ValentinKolb/dLoad/lib/random"
)

// Field names and bounds of generated invoices
const (
	InvoiceNumberKey = "invoice number"
	InvoiceItemsKey  = "items"
	InvoiceCountKey  = "total number of items"
	InvoiceTotalKey  = "total price"
	ItemAmountKey    = "amount"
	ItemUnitPriceKey = "unit price"
	ItemPriceKey     = "price"

	invoiceNumberLength = 6
	itemKeyLength       = 5
	maxItems            = 15  // items per invoice in [1, maxItems)
	maxAmount           = 21  // amount per item in [1, maxAmount)
	maxUnitPrice        = 101 // unit price in [1, maxUnitPrice)
)

// InvoiceFactory generates self-contained invoice documents:
//
//	{"invoice number": "abcdef",
//	 "items": {"qwert": {"amount": 3, "unit price": 12, "price": 36}, ...},
//	 "total number of items": 1,
//	 "total price": 36}
type InvoiceFactory struct {
	rand *random.Allocator
}

// NewInvoiceFactory creates an invoice factory drawing from the given allocator
func NewInvoiceFactory(rand *random.Allocator) *InvoiceFactory {
	return &InvoiceFactory{rand: rand}
}

// GenerateDocument implements IDocumentFactory
func (f *InvoiceFactory) GenerateDocument() (*document.Document, error) {
	invoiceNo, err := f.rand.UniqueString(invoiceNumberLength)
	if err != nil {
		return nil, fmt.Errorf("allocating invoice number: %w", err)
	}

	numberOfItems := f.rand.RandomIntInRange(maxItems-1) + 1
	log.Debugf("invoice %s will have %d items", invoiceNo, numberOfItems)

	items := document.New()
	var total int64
	for i := 0; i < numberOfItems; i++ {
		key, err := f.rand.UniqueString(itemKeyLength)
		if err != nil {
			return nil, fmt.Errorf("allocating item key for invoice %s: %w", invoiceNo, err)
		}

		amount := int64(f.rand.RandomIntInRange(maxAmount-1) + 1)
		unitPrice := int64(f.rand.RandomIntInRange(maxUnitPrice-1) + 1)
		price := amount * unitPrice

		items.Set(key, document.Nested(document.New().
			Set(ItemAmountKey, document.Integer(amount)).
			Set(ItemUnitPriceKey, document.Integer(unitPrice)).
			Set(ItemPriceKey, document.Integer(price))))
		total += price
	}

	invoice := document.New().
		Set(InvoiceNumberKey, document.String(invoiceNo)).
		Set(InvoiceItemsKey, document.Nested(items)).
		Set(InvoiceCountKey, document.Integer(int64(numberOfItems))).
		Set(InvoiceTotalKey, document.Integer(total))

	log.Debugf("invoice %s complete: %d items, total %d", invoiceNo, numberOfItems, total)
	return invoice, nil
}

// Name implements IDocumentFactory
func (f *InvoiceFactory) Name() string {
	return "invoice"
}
