package ident

// Belarusian UNP: 9 digits, weighted mod-11 over the first 8 digits. The
// all-zero value is a sentinel used in source data and is never valid. On a
// checksum collision (10) the first weight is dropped and the sum retried.

var byWeights = []int{29, 23, 19, 17, 13, 7, 5, 3}

func checkBelarus(digits string) error {
	if len(digits) != 9 {
		return ErrInvalidLength
	}
	if digits == "000000000" {
		return ErrInvalidChecksum
	}
	sum := weightedSum(digits[:8], byWeights) % 11
	if sum == 10 {
		sum = weightedSum(digits[:8], byWeights[1:]) % 11
	}
	if sum != int(digits[8]-'0') {
		return ErrInvalidChecksum
	}
	return nil
}
