package importer

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/ledger-rules/internal/storage/transaction"
)

const (
	columnDate        = "date"
	columnDescription = "description"
	columnAmount      = "amount"
	columnCategory    = "category"
)

const byteOrderMark = "\uFEFF"

// Bounds on amounts, well inside what an unconstrained Postgres NUMERIC
// stores.
const (
	maxAmountIntegerDigits  = 1000
	maxAmountFractionDigits = 1000
)

// NormalizeHeader folds a column name to its lookup key: trimmed,
// lower-cased, with runs of whitespace, dashes and underscores as one "_".
func NormalizeHeader(name string) string {
	name = strings.TrimPrefix(name, byteOrderMark)
	name = strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	separator := false
	for _, r := range name {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			separator = true
			continue
		}
		if separator && b.Len() > 0 {
			b.WriteByte('_')
		}
		separator = false
		b.WriteRune(r)
	}
	return b.String()
}

// ParseAmount reads an exact decimal, ignoring currency symbols, thousands
// separators and surrounding space.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', ',':
			return -1
		}
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	amount, err := decimal.NewFromString(cleaned)
	if err != nil || cleaned == "" || !amountInRange(amount) {
		return decimal.Decimal{}, errors.Errorf("Invalid amount format: '%s'", raw)
	}
	return amount, nil
}

func amountInRange(amount decimal.Decimal) bool {
	if amount.IsZero() {
		return true
	}
	exp := int64(amount.Exponent())
	if exp < 0 && -exp > maxAmountFractionDigits {
		return false
	}
	return int64(amount.NumDigits())+exp <= maxAmountIntegerDigits
}

// ParseDate accepts ISO calendar dates only.
func ParseDate(raw string) (time.Time, error) {
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.Errorf("Invalid date format: '%s'. Use YYYY-MM-DD", raw)
	}
	return date, nil
}

// record is one data row keyed by normalized header.
type record map[string]string

func newRecord(header, fields []string) record {
	r := make(record, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if i < len(fields) {
			r[name] = fields[i]
		} else {
			r[name] = ""
		}
	}
	return r
}

func (r record) value(column string) string {
	return strings.TrimSpace(r[column])
}

// storable reports whether s can be written to a text column.
func storable(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// sanitized copies the record with every key and value made storable, for
// error details.
func (r record) sanitized() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		out[sanitize(k)] = sanitize(v)
	}
	return out
}

func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.ReplaceAll(s, "\x00", "")
}

// validate returns the row as a create, or the messages explaining why it
// cannot be imported.
func (r record) validate() (*transaction.TransactionCreate, []string) {
	dateRaw := r.value(columnDate)
	description := r.value(columnDescription)
	amountRaw := r.value(columnAmount)

	var messages []string
	if dateRaw == "" {
		messages = append(messages, "Date is missing")
	}
	if description == "" {
		messages = append(messages, "Description is missing")
	}
	if amountRaw == "" {
		messages = append(messages, "Amount is missing")
	}
	if len(messages) > 0 {
		return nil, messages
	}

	for _, column := range []string{columnDate, columnDescription, columnAmount, columnCategory} {
		if !storable(r[column]) {
			messages = append(messages, strings.ToUpper(column[:1])+column[1:]+" contains invalid characters")
		}
	}
	if len(messages) > 0 {
		return nil, messages
	}

	date, err := ParseDate(dateRaw)
	if err != nil {
		return nil, []string{err.Error()}
	}
	amount, err := ParseAmount(amountRaw)
	if err != nil {
		return nil, []string{err.Error()}
	}

	return &transaction.TransactionCreate{
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    r.value(columnCategory),
	}, nil
}
