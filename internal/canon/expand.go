package canon

import (
	"log/slog"

	"github.com/mcncl/jsondelta/internal/logging"
	"github.com/mcncl/jsondelta/internal/models"
	"github.com/mcncl/jsondelta/internal/parser"
)

// Expand replaces the string value of every object field named in keys with
// the JSON document it contains, then keeps expanding inside the replacement.
// Strings that do not parse are left alone; that is not an error. v is
// modified in place and returned.
func Expand(v *models.Value, keys KeySet, logger *slog.Logger) *models.Value {
	if len(keys) == 0 || v == nil {
		return v
	}
	logger = logging.OrDiscard(logger)
	expand(v, keys, logger, "")
	return v
}

func expand(v *models.Value, keys KeySet, logger *slog.Logger, path string) {
	switch v.Kind() {
	case models.Array:
		for _, item := range v.Items() {
			expand(item, keys, logger, path+"[]")
		}
	case models.Object:
		for _, k := range v.Keys() {
			f, _ := v.Get(k)
			fieldPath := k
			if path != "" {
				fieldPath = path + "." + k
			}
			if keys.Has(k) && f.Kind() == models.String {
				parsed, err := parser.ParseString(f.AsString())
				if err != nil {
					logger.Debug("nested value left as string", "path", fieldPath, "error", err)
				} else {
					v.Set(k, parsed)
					f = parsed
				}
			}
			expand(f, keys, logger, fieldPath)
		}
	}
}
