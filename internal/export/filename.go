package export

import (
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/labcraft/internal/notebook"
)

// SanitizeName replaces every character outside [A-Za-z0-9] with an underscore.
func SanitizeName(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
			continue
		}
		builder.WriteByte('_')
	}
	return builder.String()
}

// subjectSegment keeps the subject readable but never lets it escape the
// output directory.
func subjectSegment(subject string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(subject))
}

// EntryFilename names the export of a single entry, without extension.
func EntryFilename(collection notebook.Collection, entry notebook.Entry) string {
	return fmt.Sprintf("%s_Entry_%d_%s", subjectSegment(collection.Subject), entry.Ordinal, SanitizeName(entry.Title))
}

// CollectionFilename names the export of a whole collection, without extension.
func CollectionFilename(collection notebook.Collection) string {
	return subjectSegment(collection.Subject) + "_Complete_Collection"
}
