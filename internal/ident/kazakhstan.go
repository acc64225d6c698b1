package ident

// Kazakh BIN/IIN: 12 digits, weighted mod-11 over the first 11 digits.
// When the primary weight vector yields 10 the secondary vector is used.

var (
	kzPrimaryWeights   = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	kzSecondaryWeights = []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 1, 2}
)

func checkKazakhstan(digits string) error {
	if len(digits) != 12 {
		return ErrInvalidLength
	}
	sum := weightedSum(digits, kzPrimaryWeights) % 11
	if sum == 10 {
		sum = weightedSum(digits, kzSecondaryWeights) % 11
	}
	if sum != int(digits[11]-'0') {
		return ErrInvalidChecksum
	}
	return nil
}
