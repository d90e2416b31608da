package columns

// DateHeader is the default name of the date column.
const DateHeader = "date"

// ResolveHeaders maps every letter to its display name: a non-empty override name, else the raw
// column identifier, else "date" for column A. rawColumns must not include the date column.
func ResolveHeaders(letters []string, rawColumns []string, overrides Overrides) map[string]string {
	names := make([]string, 0, len(rawColumns)+1)
	names = append(names, DateHeader)
	names = append(names, rawColumns...)

	headers := make(map[string]string, len(letters))
	for i, letter := range letters {
		if i >= len(names) {
			break
		}
		headers[letter] = names[i]
		if ov, ok := overrides[letter]; ok && ov.Name != "" {
			headers[letter] = ov.Name
		}
	}
	return headers
}

// Classification holds the numeric columns found in a set of overrides.
type Classification struct {
	Ints   map[string]bool
	Floats map[string]bool
	// Decimals is keyed by float letter.
	Decimals map[string]int
}

// Classify scans overrides for int and float type tags.
// A decimals value on a non-float column is ignored, one outside 0..MaxDecimals falls back to
// DefaultDecimals.
func Classify(overrides Overrides) Classification {
	c := Classification{
		Ints:     make(map[string]bool),
		Floats:   make(map[string]bool),
		Decimals: make(map[string]int),
	}
	for letter, ov := range overrides {
		switch ov.Type {
		case TypeInt:
			c.Ints[letter] = true
		case TypeFloat:
			c.Floats[letter] = true
			c.Decimals[letter] = DefaultDecimals
			if ov.Decimals != nil && *ov.Decimals >= 0 && *ov.Decimals <= MaxDecimals {
				c.Decimals[letter] = *ov.Decimals
			}
		}
	}
	return c
}

// Kind returns how values in the given column are coerced.
func (c Classification) Kind(letter string) ValueKind {
	if c.Ints[letter] {
		return ValueKind{Kind: KindInt}
	}
	if c.Floats[letter] {
		return ValueKind{Kind: KindFloat, Decimals: c.Decimals[letter]}
	}
	return ValueKind{Kind: KindRaw}
}
