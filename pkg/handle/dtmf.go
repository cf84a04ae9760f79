package handle

import "strings"

// validDTMFChars mirrors the RFC 4733 event set a DTMF sender can play.
const validDTMFChars = "0123456789ABCD*#"

// normalizeDTMFTones strips anything outside the valid DTMF alphabet before
// a SendDTMF call, so the tone count actually played matches the digit
// count the caller intended rather than silently including whitespace or
// formatting characters. Returns ErrInvalidDtmf if nothing valid remains.
func normalizeDTMFTones(tones string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(tones) {
		if strings.ContainsRune(validDTMFChars, r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", ErrInvalidDtmf
	}
	return b.String(), nil
}
