package util

import "strings"

// FormatPersonName converts "First Last" style input into the DICOM PN
// form "LAST^FIRST". Input already containing a caret is passed through
// unchanged, so values copied from existing datasets keep their shape.
func FormatPersonName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "^") {
		return name
	}

	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0]
	}

	last := parts[len(parts)-1]
	first := strings.Join(parts[:len(parts)-1], " ")
	return last + "^" + first
}

// DisplayPersonName renders a DICOM PN value ("LAST^FIRST^MIDDLE") as
// readable text. Empty components are dropped.
func DisplayPersonName(pn string) string {
	if !strings.Contains(pn, "^") {
		return pn
	}

	components := strings.Split(pn, "^")
	var parts []string
	// PN order is family, given, middle; display as given middle family.
	for i := 1; i < len(components); i++ {
		if components[i] != "" {
			parts = append(parts, components[i])
		}
	}
	if components[0] != "" {
		parts = append(parts, components[0])
	}
	return strings.Join(parts, " ")
}
