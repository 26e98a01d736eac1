package imapfetch

import (
	"fmt"
	"strings"
	"time"
)

// messageDateLayouts holds the permutations of the date-time syntax defined
// in RFC 5322 section 3.3: optional day of week, one or two digit day,
// obsolete two-digit years, optional seconds and the zone forms seen in the
// wild. The most common form comes first.
var messageDateLayouts = buildMessageDateLayouts()

func buildMessageDateLayouts() []string {
	var layouts []string
	for _, weekday := range []string{"Mon, ", ""} {
		for _, day := range []string{"02", "2"} {
			for _, year := range []string{"2006", "06"} {
				for _, clock := range []string{"15:04:05", "15:04"} {
					for _, zone := range []string{"-0700", "MST", "-0700 (MST)"} {
						layouts = append(layouts, weekday+day+" Jan "+year+" "+clock+" "+zone)
					}
				}
			}
		}
	}
	return layouts
}

// parseMessageDate parses a Date header field value. Comments such as
// "(UTC)" and runs of whitespace are tolerated.
func parseMessageDate(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	for _, layout := range messageDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Trailing comments not covered by the layouts above
	if i := strings.LastIndexByte(s, '('); i > 0 && strings.HasSuffix(s, ")") {
		return parseMessageDate(s[:i])
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
