package das2

import "strconv"

// ValueSizer returns the per-value byte width encoded in a type token such
// as "float32" or "ascii14": the trailing run of decimal digits, parsed as
// base-10. It fails with InvalidEncoding if the token carries no trailing
// digits at all.
func ValueSizer(typeToken string) (int, error) {
	if typeToken == "" {
		return 0, InvalidEncodingError("empty type token")
	}
	i := len(typeToken)
	for i > 0 && isDigit(typeToken[i-1]) {
		i--
	}
	digits := typeToken[i:]
	if digits == "" {
		return 0, InvalidEncodingError("type token %q carries no trailing digit suffix", typeToken)
	}
	width, err := strconv.Atoi(digits)
	if err != nil {
		return 0, InvalidEncodingError("type token %q: %s", typeToken, err)
	}
	return width, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
