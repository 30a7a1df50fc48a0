package routing

// VisitorContext holds the facts about one inbound request that rules are
// evaluated against. The empty string means unknown for every field.
type VisitorContext struct {
	Country   string `json:"country"`
	Language  string `json:"language"`
	OS        string `json:"os"`
	Device    string `json:"device"`
	Browser   string `json:"browser"`
	LocalTime string `json:"localTime"` // HH:MM
}

// Get returns the attribute a condition on f is compared against.
func (c VisitorContext) Get(f Field) string {
	switch f {
	case FieldCountry:
		return c.Country
	case FieldLanguage:
		return c.Language
	case FieldOS:
		return c.OS
	case FieldDevice:
		return c.Device
	case FieldBrowser:
		return c.Browser
	case FieldTime:
		return c.LocalTime
	}
	return ""
}

// Merge returns c with every non-empty field of o applied on top.
func (c VisitorContext) Merge(o VisitorContext) VisitorContext {
	if o.Country != "" {
		c.Country = o.Country
	}
	if o.Language != "" {
		c.Language = o.Language
	}
	if o.OS != "" {
		c.OS = o.OS
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.Browser != "" {
		c.Browser = o.Browser
	}
	if o.LocalTime != "" {
		c.LocalTime = o.LocalTime
	}
	return c
}
