package models

// Display labels for records that carry no usable price.
const (
	DisplayPriceHidden = "Price hidden"
	DisplayLoginToView = "Login to view"
)

// NoResultsMessage is returned when a search yields no product cards.
const NoResultsMessage = "Start searching"

// Result is the successful outcome of an extraction. Both reply shapes
// are written to the client as-is.
type Result interface {
	Succeeded() bool
}

// ProductRecord is one product card scraped from the upstream page.
type ProductRecord struct {
	// Title is the card heading text.
	Title string `json:"title"`

	// ImageURL is the absolute product image URL, or empty.
	ImageURL string `json:"image"`

	// PriceUSD is the upstream price; 0 when hidden or missing.
	PriceUSD int `json:"price_usd"`

	// PriceEUR is PriceUSD converted at the target's fixed rate.
	PriceEUR int `json:"price_eur"`

	// DisplayPrice is "<eur> €", "Price hidden" or "Login to view".
	DisplayPrice string `json:"display_price"`

	// SourceURL is the absolute detail-page URL, or empty.
	SourceURL string `json:"source_url"`

	Brands string `json:"brands,omitempty"`
	Models string `json:"models,omitempty"`
}

// ResultEnvelope is the structured-mode reply.
type ResultEnvelope struct {
	Success  bool            `json:"success"`
	Count    int             `json:"count"`
	Products []ProductRecord `json:"products"`
	Message  string          `json:"message,omitempty"`

	// Skipped counts cards dropped because they failed to parse.
	Skipped int `json:"-"`
}

func (e *ResultEnvelope) Succeeded() bool { return e.Success }

// NewResultEnvelope builds a successful envelope; Count always matches Products.
func NewResultEnvelope(products []ProductRecord) *ResultEnvelope {
	return &ResultEnvelope{
		Success:  true,
		Count:    len(products),
		Products: products,
	}
}

// NoResults builds the "nothing found" envelope. It is not an error.
func NoResults() *ResultEnvelope {
	return &ResultEnvelope{
		Success:  false,
		Products: []ProductRecord{},
		Message:  NoResultsMessage,
	}
}

// PassthroughResult is the passthrough-mode reply: the upstream body untouched.
type PassthroughResult struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Data    string `json:"data"`
}

func (p *PassthroughResult) Succeeded() bool { return p.Success }
