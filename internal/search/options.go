package search

import (
	"math"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

// DefaultOptions returns the package defaults with every field set.
func DefaultOptions() Options {
	return Options{
		KBase:  DefaultKBase,
		KFinal: DefaultKFinal,
		Alpha:  Float64(DefaultAlpha),
	}
}

// WithDefaults fills unset fields from base. Fields base leaves unset fall
// back to the package defaults. Negative values are kept so Validate can
// reject them.
func (o Options) WithDefaults(base Options) Options {
	def := DefaultOptions()
	if o.KBase == 0 {
		o.KBase = firstNonZero(base.KBase, def.KBase)
	}
	if o.KFinal == 0 {
		o.KFinal = firstNonZero(base.KFinal, def.KFinal)
	}
	if o.Alpha == nil {
		if base.Alpha != nil {
			o.Alpha = Float64(*base.Alpha)
		} else {
			o.Alpha = def.Alpha
		}
	}
	return o
}

// AlphaValue returns Alpha, or DefaultAlpha when unset.
func (o Options) AlphaValue() float64 {
	if o.Alpha == nil {
		return DefaultAlpha
	}
	return *o.Alpha
}

// Validate rejects parameters that would produce meaningless scores.
// It expects defaults to have been applied.
func (o Options) Validate() error {
	alpha := o.AlphaValue()
	switch {
	case math.IsNaN(alpha) || alpha < 0 || alpha > 1:
		return invalidQuery("alpha must be between 0 and 1, got %v", alpha)
	case o.KBase < 1:
		return invalidQuery("k_base must be at least 1, got %d", o.KBase)
	case o.KFinal < 1:
		return invalidQuery("k_final must be at least 1, got %d", o.KFinal)
	case o.KFinal > o.KBase:
		return invalidQuery("k_final (%d) must not exceed k_base (%d)", o.KFinal, o.KBase)
	}
	return nil
}

func invalidQuery(format string, args ...any) error {
	return docqaerrors.Newf(docqaerrors.ErrCodeInvalidQuery, format, args...)
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
