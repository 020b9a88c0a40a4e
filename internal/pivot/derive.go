package pivot

import (
	"fmt"
	"math"
	"time"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/pkg/utils"
)

// Deriver computes dependent fields on copies of the input records before
// grouping.
type Deriver struct {
	derivations []model.Derivation
	now         func() time.Time
}

// DeriveOption configures a Deriver.
type DeriveOption func(*Deriver)

// WithNow fixes the reference time used for age derivations.
func WithNow(now func() time.Time) DeriveOption {
	return func(d *Deriver) { d.now = now }
}

// NewDeriver validates the derivations.
func NewDeriver(derivations []model.Derivation, opts ...DeriveOption) (*Deriver, error) {
	for _, dv := range derivations {
		if dv.Field == "" || dv.Source == "" {
			return nil, fmt.Errorf("derivation %s needs a field and a source", dv.Kind)
		}
		switch dv.Kind {
		case model.DeriveRate:
			if dv.Against == "" {
				return nil, fmt.Errorf("rate %s needs a denominator field", dv.Field)
			}
		case model.DeriveShare, model.DeriveAge:
		default:
			return nil, fmt.Errorf("derivation %s: unknown kind %q", dv.Field, dv.Kind)
		}
	}
	d := &Deriver{derivations: derivations, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Derive returns copies of the records with every derived field merged in.
// The input slice and its records are left untouched.
func (d *Deriver) Derive(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	if len(d.derivations) == 0 {
		return out
	}

	now := d.now()
	for _, dv := range d.derivations {
		var total float64
		if dv.Kind == model.DeriveShare && dv.Against == "" {
			for _, rec := range out {
				v, _ := utils.Numeric(rec[dv.Source])
				total += v
			}
		}
		for _, rec := range out {
			rec[dv.Field] = d.value(rec, dv, total, now)
		}
	}
	return out
}

func (d *Deriver) value(rec model.Record, dv model.Derivation, total float64, now time.Time) float64 {
	switch dv.Kind {
	case model.DeriveRate:
		num, _ := utils.Numeric(rec[dv.Source])
		den, _ := utils.Numeric(rec[dv.Against])
		return scale(ratio(num, den), dv.Percent)
	case model.DeriveShare:
		part, _ := utils.Numeric(rec[dv.Source])
		whole := total
		if dv.Against != "" {
			whole, _ = utils.Numeric(rec[dv.Against])
		}
		return scale(ratio(part, whole), dv.Percent)
	case model.DeriveAge:
		ref, ok := utils.Date(rec[dv.Source])
		if !ok {
			return 0
		}
		return math.Floor(now.Sub(ref).Hours() / 24)
	}
	return 0
}

// ratio yields 0 for a zero or non-finite denominator.
func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}
	return num / den
}

func scale(v float64, percent bool) float64 {
	if percent {
		return v * 100
	}
	return v
}

// Derive is a convenience wrapper around NewDeriver with a fixed clock.
func Derive(records []model.Record, derivations []model.Derivation, now time.Time) ([]model.Record, error) {
	d, err := NewDeriver(derivations, WithNow(func() time.Time { return now }))
	if err != nil {
		return nil, err
	}
	return d.Derive(records), nil
}
