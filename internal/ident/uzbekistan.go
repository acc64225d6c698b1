package ident

// Uzbek INN: 9 digits with the first digit in [3..8]. There is no published
// checksum; this is the range heuristic the registry itself uses.

func checkUzbekistan(digits string) error {
	if len(digits) != 9 {
		return ErrInvalidLength
	}
	if digits[0] < '3' || digits[0] > '8' {
		return ErrInvalidChecksum
	}
	return nil
}
