package core

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date rendering.
const DateLayout = "2006-01-02"

const (
	// UncategorizedID is reserved for the synthetic bucket and never assigned.
	UncategorizedID   int64 = 0
	UncategorizedName       = "Uncategorized"
	UncategorizedColor      = "#cccccc"

	// DefaultColor is used when a category is created without a colour.
	DefaultColor = "#000000"

	maxCategoryName = 60
	maxDescription  = 500
)

type (
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          int64           `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		CategoryID  *int64          `json:"categoryId"`
	}

	Category struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	// ColumnMapping names the CSV headers holding each transaction field.
	ColumnMapping struct {
		Date        string `json:"date" yaml:"date"`
		Description string `json:"description" yaml:"description"`
		Amount      string `json:"amount" yaml:"amount"`
	}
)

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Uncategorized is the synthetic bucket for missing or orphaned category references.
var Uncategorized = Category{ID: UncategorizedID, Name: UncategorizedName, Color: UncategorizedColor}

// DefaultCategories returns a fresh copy of the built-in category set.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: "Food & Dining", Color: "#FF5733"},
		{ID: 2, Name: "Transportation", Color: "#33FF57"},
		{ID: 3, Name: "Entertainment", Color: "#3357FF"},
		{ID: 4, Name: "Utilities", Color: "#F3FF33"},
		{ID: 5, Name: "Shopping", Color: "#FF33F6"},
		{ID: 6, Name: "Healthcare", Color: "#33FFF6"},
		{ID: 7, Name: "Income", Color: "#8033FF"},
		{ID: 8, Name: "Other", Color: "#FF8333"},
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	*d = DateOf(t)
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date cannot be zero"}
	}
	return nil
}

// IsExpense reports whether the transaction is money going out.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsIncome reports whether the transaction is money coming in.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// Magnitude is the absolute amount.
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > maxDescription {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("description too long (max %d characters)", maxDescription)}
	}
	return nil
}

// NormalizeCategory trims the name, defaults the colour and validates both.
func NormalizeCategory(name, color string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", ErrEmptyCategoryName
	}
	if len(name) > maxCategoryName {
		return "", "", &ValidationError{Field: "name", Value: name, Reason: fmt.Sprintf("category name too long (max %d characters)", maxCategoryName)}
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultColor
	}
	if !colorPattern.MatchString(color) {
		return "", "", &ValidationError{Field: "color", Value: color, Reason: "color must be a hex value like #1a2b3c"}
	}
	return name, color, nil
}

// CategoryIndex resolves category references, folding unknown ids into Uncategorized.
type CategoryIndex map[int64]Category

func NewCategoryIndex(cats []Category) CategoryIndex {
	idx := make(CategoryIndex, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx
}

// Resolve returns the category a transaction belongs to for aggregation purposes.
func (idx CategoryIndex) Resolve(categoryID *int64) Category {
	if categoryID == nil {
		return Uncategorized
	}
	if c, ok := idx[*categoryID]; ok {
		return c
	}
	return Uncategorized
}

// Int64Ptr is a small helper for optional category references.
func Int64Ptr(v int64) *int64 {
	return &v
}
