package ident

// Russian INN: 10 digits for organizations (single check digit), 12 digits
// for individuals (two check digits computed sequentially).

var (
	ruCompanyWeights   = []int{2, 4, 10, 3, 5, 9, 4, 6, 8}
	ruPersonalWeights  = []int{7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
	ruPersonalWeights2 = []int{3, 7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
)

func checkRussia(digits string) error {
	switch len(digits) {
	case 10:
		if ruCompanyCheckDigit(digits) != digits[9] {
			return ErrInvalidChecksum
		}
	case 12:
		d1, d2 := ruPersonalCheckDigits(digits)
		if d1 != digits[10] || d2 != digits[11] {
			return ErrInvalidChecksum
		}
	default:
		return ErrInvalidLength
	}
	return nil
}

func ruCompanyCheckDigit(digits string) byte {
	return '0' + byte(weightedSum(digits, ruCompanyWeights)%11%10)
}

func ruPersonalCheckDigits(digits string) (byte, byte) {
	d1 := byte(weightedSum(digits, ruPersonalWeights) % 11 % 10)
	// The second check digit covers the first ten digits plus d1.
	base := digits[:10] + string('0'+d1)
	d2 := byte(weightedSum(base, ruPersonalWeights2) % 11 % 10)
	return '0' + d1, '0' + d2
}
