package stream

import "strconv"

// DefaultPrecision is the number of significant digits per value, the
// resolution of a float32.
const DefaultPrecision = 7

// FormatVoltage renders v with up to precision significant digits and no
// trailing zeros, e.g. -0.5 or 3.32.
func FormatVoltage(v float32, precision int) string {
	return string(AppendVoltage(nil, v, precision))
}

// AppendVoltage appends the FormatVoltage form of v to dst.
func AppendVoltage(dst []byte, v float32, precision int) []byte {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return strconv.AppendFloat(dst, float64(v), 'g', precision, 32)
}
