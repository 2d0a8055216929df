package dtparse

// Registry is the ordered DTPD library. Order matters: more specific
// patterns precede more general ones, and patterns with a tz capture
// precede otherwise-identical patterns without one, per spec.md §4.2.
//
// This is a representative, extensible subset standing in for the
// source's ~80-pattern table (spec.md explicitly treats the literal
// regex list contents as out of scope); adding a platform-specific
// variant means appending one more DTPD literal here.
var Registry = []*DTPD{
	{
		Name:   "iso8601-frac-tz",
		Source: `(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})[T ](?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2})\.(?P<fractional>\d+)\s*(?P<tz>[+-]\d{2}:?\d{2}|Z|[A-Za-z]{2,5})`,
		HasTZ:  true,
	},
	{
		Name:   "iso8601-tz",
		Source: `(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})[T ](?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2})\s*(?P<tz>[+-]\d{2}:?\d{2}|Z|[A-Za-z]{2,5})`,
		HasTZ:  true,
	},
	{
		Name:   "iso8601-frac",
		Source: `(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})[T ](?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2})\.(?P<fractional>\d+)`,
	},
	{
		Name:   "iso8601",
		Source: `(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})[T ](?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2})`,
	},
	{
		Name:   "iso8601-date-only",
		Source: `(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})`,
	},
	{
		Name:   "slash-date-tz",
		Source: `(?P<month>\d{2})/(?P<day>\d{2})/(?P<year>\d{4}) (?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2}) (?P<tz>[A-Za-z]{2,5})`,
		HasTZ:  true,
	},
	{
		Name:   "apache-clf",
		Source: `(?P<day>\d{2})/(?P<month>[A-Za-z]{3})/(?P<year>\d{4}):(?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2}) (?P<tz>[+-]\d{4})`,
		HasTZ:  true,
	},
	{
		Name:         "syslog-traditional",
		Source:       `(?P<month>[A-Za-z]{3})\s+(?P<day>\d{1,2}) (?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2})`,
		SearchWindow: 32,
	},
	{
		Name:         "syslog-rfc3164-year",
		Source:       `(?P<month>[A-Za-z]{3})\s+(?P<day>\d{1,2}) (?P<year>\d{4}) (?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2})`,
		SearchWindow: 40,
	},
	{
		Name:   "dotted-date",
		Source: `(?P<day>\d{2})\.(?P<month>\d{2})\.(?P<year>\d{4}) (?P<hour>\d{2}):(?P<minute>\d{2}):(?P<second>\d{2})`,
	},
	{
		Name:   "us-date-ampm",
		Source: `(?P<month>\d{1,2})/(?P<day>\d{1,2})/(?P<year>\d{4}),?\s+(?P<hour>\d{1,2}):(?P<minute>\d{2}):(?P<second>\d{2})`,
	},
	{
		Name:         "epoch-seconds",
		Source:       `^(?P<epoch>\d{10})(?:\.(?P<fractional>\d+))?`,
		SearchWindow: 24,
	},
	{
		Name:         "epoch-millis",
		Source:       `^(?P<epochms>\d{13})`,
		SearchWindow: 24,
	},
}

// EpochPatternNames marks the two patterns above whose capture groups
// ("epoch", "epochms") fall outside the fixed year..tz vocabulary: they
// carry a raw Unix timestamp instead of broken-down fields. TryParse
// special-cases these two group names directly.
var EpochPatternNames = map[string]bool{
	"epoch-seconds": true,
	"epoch-millis":  true,
}
