package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	appErrors "github.com/familyspend/ExpenseTracker/internal/errors"
)

// Money is a fixed point amount with two fraction digits held as integer
// cents. It maps to numeric(10,2) in Postgres.
type Money struct {
	Cents int64
}

var (
	MinExpenseAmount = Money{Cents: 1}
	MaxExpenseAmount = Money{Cents: 100_000_000}
)

var ErrInvalidAmount = appErrors.NewValidationError("amount must be a decimal number")

var (
	hundred = big.NewInt(100)
	two     = big.NewInt(2)
)

func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseMoney reads a decimal string such as "12.5", "12.505" or "1e3" and
// rounds it half away from zero to whole cents.
func ParseMoney(s string) (Money, error) {
	r, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	return roundCents(r)
}

func parseDecimal(s string) (*big.Rat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidAmount
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return r, nil
}

func roundCents(r *big.Rat) (Money, error) {
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(hundred))

	num := new(big.Int).Abs(scaled.Num())
	den := scaled.Denom()
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Mul(rem, two).Cmp(den) >= 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if !quo.IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	cents := quo.Int64()
	if scaled.Sign() < 0 {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

func (m Money) rat() *big.Rat {
	return big.NewRat(m.Cents, 100)
}

// Amount is an amount as a client wrote it. Range checks compare the exact
// decimal so that 0.005 stays below one cent; Money gives the rounded value
// that gets stored.
type Amount struct {
	exact *big.Rat
	money Money
}

func ParseAmount(s string) (*Amount, error) {
	r, err := parseDecimal(s)
	if err != nil {
		return nil, err
	}
	m, err := roundCents(r)
	if err != nil {
		return nil, err
	}
	return &Amount{exact: r, money: m}, nil
}

// AmountOf wraps a value that is already in whole cents.
func AmountOf(m Money) *Amount {
	return &Amount{exact: m.rat(), money: m}
}

func (a Amount) Money() Money {
	return a.money
}

// Within reports whether the exact amount lies in [lo, hi].
func (a Amount) Within(lo, hi Money) bool {
	exact := a.exact
	if exact == nil {
		exact = a.money.rat()
	}
	return exact.Cmp(lo.rat()) >= 0 && exact.Cmp(hi.rat()) <= 0
}

// UnmarshalJSON accepts the same forms as Money.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw, err := jsonDecimal(data)
	if err != nil {
		return err
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// DivRound divides by n rounding half away from zero. Division by zero
// yields zero.
func (m Money) DivRound(n int64) Money {
	if n == 0 {
		return Money{}
	}
	cents, divisor := m.Cents, n
	negative := (cents < 0) != (divisor < 0)
	if cents < 0 {
		cents = -cents
	}
	if divisor < 0 {
		divisor = -divisor
	}
	q := (cents + divisor/2) / divisor
	if negative {
		q = -q
	}
	return Money{Cents: q}
}

func (m Money) IsPositive() bool {
	return m.Cents > 0
}

func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON writes the amount as a JSON number with two fraction digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw, err := jsonDecimal(data)
	if err != nil {
		return err
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func jsonDecimal(data []byte) (string, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return "", ErrInvalidAmount
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", ErrInvalidAmount
		}
		raw = s
	}
	return raw, nil
}

func (m *Money) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		*m = Money{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return fmt.Errorf("cannot scan %q into Money: %w", s, err)
	}
	*m = parsed
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}
