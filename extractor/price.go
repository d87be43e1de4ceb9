package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rekat/price-server/models"
)

// usdRe matches "<integer> USD". Commas are accepted as thousands
// separators; whether the digits stand alone is checked by amountStart.
var usdRe = regexp.MustCompile(`(\d[\d,]*)\s*USD`)

// groupedRe is a comma-grouped integer such as "1,250" or "12,500,000".
var groupedRe = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)

// price is the normalized price signal of one card.
type price struct {
	USD     int
	EUR     int
	Display string
}

var (
	// loginToView is the price of a card that has no price element at all.
	loginToView = price{Display: models.DisplayLoginToView}

	priceHidden = price{Display: models.DisplayPriceHidden}
)

// parsePrice reads the text of a price element. Text without a positive,
// unambiguous "<integer> USD" amount yields "Price hidden".
func parsePrice(text string, rate float64) price {
	m := usdRe.FindStringSubmatchIndex(text)
	if m == nil || !amountStart(text[:m[2]]) {
		return priceHidden
	}
	digits := text[m[2]:m[3]]
	if strings.Contains(digits, ",") && !groupedRe.MatchString(digits) {
		return priceHidden
	}
	usd, err := strconv.Atoi(strings.ReplaceAll(digits, ",", ""))
	if err != nil || usd <= 0 {
		return priceHidden
	}
	eur := toEUR(usd, rate)
	return price{
		USD:     usd,
		EUR:     eur,
		Display: strconv.Itoa(eur) + " €",
	}
}

// amountStart reports whether an amount may begin right after prefix.
// Digits that continue a larger number, such as "1 250" or "12.50",
// are not an amount.
func amountStart(prefix string) bool {
	if prefix == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(prefix)
	switch {
	case r == '.' || r == ',' || r == '-' || r == '+' || r == '\u2212':
		return false
	case unicode.IsSpace(r):
		trimmed := strings.TrimRightFunc(prefix, unicode.IsSpace)
		if trimmed == "" {
			return true
		}
		last, _ := utf8.DecodeLastRuneInString(trimmed)
		return !unicode.IsDigit(last)
	}
	return true
}

func toEUR(usd int, rate float64) int {
	return int(math.Round(float64(usd) * rate))
}
