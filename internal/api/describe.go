package api

import "github.com/mmrzaf/cqlstress/internal/distribution"

func describe(spec string, d distribution.Distribution) distributionView {
	v := distributionView{
		Spec:          spec,
		Description:   d.String(),
		Deterministic: d.Deterministic(),
	}
	if b, ok := d.(distribution.Bounded); ok {
		lo, hi := b.Min(), b.Max()
		v.Min, v.Max = &lo, &hi
	}
	return v
}
