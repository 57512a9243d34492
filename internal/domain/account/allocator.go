package account

import (
	"fmt"
)

// CodeRange is the inclusive numeric code range owned by an account type
type CodeRange struct {
	Start int
	End   int
}

// Contains reports whether code lies within the range
func (r CodeRange) Contains(code int) bool {
	return code >= r.Start && code <= r.End
}

var codeRanges = map[Type]CodeRange{
	TypeAsset:     {Start: 10000, End: 19999},
	TypeLiability: {Start: 20000, End: 29999},
	TypeEquity:    {Start: 30000, End: 39999},
	TypeRevenue:   {Start: 40000, End: 49999},
	TypeExpense:   {Start: 50000, End: 59999},
}

// ErrUnknownAccountType indicates a type with no code range
type ErrUnknownAccountType struct {
	Type string
}

func (e ErrUnknownAccountType) Error() string {
	return fmt.Sprintf("unknown account type %q", e.Type)
}

func (e ErrUnknownAccountType) Is(target error) bool {
	_, ok := target.(ErrUnknownAccountType)
	return ok
}

// ErrRangeExhausted indicates every code of a type's range is in use
type ErrRangeExhausted struct {
	Type  Type
	Range CodeRange
}

func (e ErrRangeExhausted) Error() string {
	return fmt.Sprintf("account code range %d-%d for %s accounts is exhausted", e.Range.Start, e.Range.End, e.Type)
}

func (e ErrRangeExhausted) Is(target error) bool {
	_, ok := target.(ErrRangeExhausted)
	return ok
}

// RangeFor returns the code range owned by t
func RangeFor(t Type) (CodeRange, error) {
	r, ok := codeRanges[t]
	if !ok {
		return CodeRange{}, ErrUnknownAccountType{Type: string(t)}
	}
	return r, nil
}

// AllocateCode returns the lowest unused code in t's range, reusing gaps before
// extending past the highest used code. Codes outside the range are ignored and
// existing need not be sorted.
func AllocateCode(t Type, existing []int) (int, error) {
	r, err := RangeFor(t)
	if err != nil {
		return 0, err
	}

	used := make(map[int]struct{}, len(existing))
	for _, c := range existing {
		if r.Contains(c) {
			used[c] = struct{}{}
		}
	}

	for code := r.Start; code <= r.End; code++ {
		if _, taken := used[code]; !taken {
			return code, nil
		}
	}
	return 0, ErrRangeExhausted{Type: t, Range: r}
}
