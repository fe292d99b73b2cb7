package crate

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxNameBytes is the default byte budget for a crate filename, leaving
// room for the ".crate" extension under common 255-byte filesystem limits.
const MaxNameBytes = 240

// ellipsis marks truncated names. Its UTF-8 length counts against the
// byte budget so sanitized output never exceeds it.
const ellipsis = "…"

// invisibleRunes are zero-width and invisible code points stripped before
// any other processing: zero-width space/non-joiner/joiner, LTR/RTL marks,
// BOM, and soft hyphen.
var invisibleRunes = map[rune]bool{
	'\u200b': true, // zero-width space
	'\u200c': true, // zero-width non-joiner
	'\u200d': true, // zero-width joiner
	'\u200e': true, // left-to-right mark
	'\u200f': true, // right-to-left mark
	'\ufeff': true, // byte-order mark
	'\u00ad': true, // soft hyphen
}

// reservedReplacer maps filesystem-reserved characters to hyphens.
var reservedReplacer = strings.NewReplacer(
	"/", "-", `\`, "-", ":", "-", "*", "-", "?", "-",
	`"`, "-", "<", "-", ">", "-", "|", "-",
)

// Sanitize normalizes a proposed crate filename into a filesystem-safe,
// length-bounded identifier. It is a pure function and idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string, maxBytes int) string {
	name = strings.Map(func(r rune) rune {
		if invisibleRunes[r] {
			return -1
		}

		return r
	}, name)

	name = norm.NFC.String(name)
	name = reservedReplacer.Replace(name)

	if len(name) > maxBytes {
		if maxBytes < len(ellipsis) {
			// No room for the marker itself; hard-truncate instead.
			name = truncate(name, maxBytes)
		} else {
			name = truncate(name, maxBytes-len(ellipsis))
			name = strings.TrimRight(name, " \t") + ellipsis
		}
	}

	return strings.TrimSpace(name)
}

// truncate drops whole runes from the end of s until its UTF-8 length fits
// within budget. It never splits a multi-byte code point.
func truncate(s string, budget int) string {
	if budget < 0 {
		return ""
	}

	runes := []rune(s)
	for len(s) > budget && len(runes) > 0 {
		runes = runes[:len(runes)-1]
		s = string(runes)
	}

	return s
}
