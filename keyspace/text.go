package keyspace

import (
	"strconv"
	"strings"

	"github.com/vaultwarden-hd/hdcore/cerrors"
)

// String renders a component in the "CAP43" textual form: a bare
// decimal for Unhardened, "N H" / "N '" for UnsecurifiedHardened, and
// "N S" / "N ^" for Securified. String always uses the verbose form;
// use ShorthandString for the "'"/"^" rendering.
func String(c HDPathComponent) string {
	idx := strconv.FormatUint(uint64(c.IndexInLocalKeySpace()), 10)
	switch c.Space() {
	case SpaceUnhardened:
		return idx
	case SpaceUnsecurifiedHardened:
		return idx + "H"
	case SpaceSecurified:
		return idx + "S"
	default:
		return idx
	}
}

// ShorthandString renders a component using the shorthand suffixes
// ("'" for unsecurified-hardened, "^" for securified).
func ShorthandString(c HDPathComponent) string {
	idx := strconv.FormatUint(uint64(c.IndexInLocalKeySpace()), 10)
	switch c.Space() {
	case SpaceUnhardened:
		return idx
	case SpaceUnsecurifiedHardened:
		return idx + "'"
	case SpaceSecurified:
		return idx + "^"
	default:
		return idx
	}
}

// ParseComponent parses a single CAP43 path component. It accepts the
// verbose suffixes "H"/"S" and the shorthand suffixes "'"/"^", plus a
// BIP32-only fallback for a pure-hardened "N H" whose N exceeds
// U30Max: it is read as the hardened global index
// GlobalOffsetHardened+N (e.g. "1073741824H" == "0S"), or, when N is
// itself >= GlobalOffsetHardened, as the global index N.
func ParseComponent(raw string) (HDPathComponent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, cerrors.Withf(cerrors.KindInvalidBIP32Path, "empty component")
	}

	var space Space
	var digits string

	switch {
	case strings.HasSuffix(raw, "H"), strings.HasSuffix(raw, "'"):
		space = SpaceUnsecurifiedHardened
		digits = raw[:len(raw)-1]
	case strings.HasSuffix(raw, "S"), strings.HasSuffix(raw, "^"):
		space = SpaceSecurified
		digits = raw[:len(raw)-1]
	default:
		space = SpaceUnhardened
		digits = raw
	}
	digits = strings.TrimSpace(digits)

	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return nil, cerrors.Withf(cerrors.KindInvalidBIP32Path, "%s", raw)
	}

	if n > uint64(^uint32(0)) {
		return nil, cerrors.Withf(cerrors.KindInvalidBIP32Path, "%s", raw)
	}

	// BIP32-only fallback: a pure-hardened "N H" whose N does not fit
	// the unsecurified-hardened local range is read as a global index.
	if space == SpaceUnsecurifiedHardened && n > uint64(U30Max) {
		if n >= uint64(GlobalOffsetHardened) {
			return FromGlobalKeySpace(uint32(n))
		}
		return FromGlobalKeySpace(GlobalOffsetHardened + uint32(n))
	}

	return FromLocalKeySpace(uint32(n), space)
}

// ParsePath splits a CAP43 path string into components. A leading
// "m/" is tolerated but not required; "/" separates components.
func ParsePath(raw string) ([]HDPathComponent, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "m/")
	raw = strings.TrimPrefix(raw, "m")
	raw = strings.TrimPrefix(raw, "/")
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, "/")
	components := make([]HDPathComponent, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		c, err := ParseComponent(part)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, nil
}

// RenderPath renders components back into "m/.../..." form using the
// verbose suffixes.
func RenderPath(components []HDPathComponent) string {
	parts := make([]string, 0, len(components)+1)
	parts = append(parts, "m")
	for _, c := range components {
		parts = append(parts, String(c))
	}
	return strings.Join(parts, "/")
}
