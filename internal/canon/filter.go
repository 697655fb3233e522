package canon

import (
	"slices"

	"github.com/mcncl/jsondelta/internal/models"
)

// Filter removes every object field named in ignore, at any depth, including
// objects held inside arrays. v is modified in place and returned.
func Filter(v *models.Value, ignore KeySet) *models.Value {
	if len(ignore) == 0 || v == nil {
		return v
	}
	filter(v, ignore)
	return v
}

func filter(v *models.Value, ignore KeySet) {
	switch v.Kind() {
	case models.Array:
		for _, item := range v.Items() {
			filter(item, ignore)
		}
	case models.Object:
		for _, k := range slices.Clone(v.Keys()) {
			if ignore.Has(k) {
				v.Delete(k)
				continue
			}
			f, _ := v.Get(k)
			filter(f, ignore)
		}
	}
}
