// Package geo resolves US state codes and loads state boundary shapefiles.
package geo

import "strings"

// NormalizeFIPSState normalizes a state FIPS code to 2 digits with zero-padding.
// Anything that is not one or two ASCII digits yields "".
func NormalizeFIPSState(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > 2 || !isDigits(code) {
		return ""
	}
	if len(code) == 1 {
		return "0" + code
	}
	return code
}

// Census GEOID lengths at the block group and block levels.
const (
	blockGroupGEOIDLen = 12
	blockGEOIDLen      = 15
)

// StateFromGEOID returns the state prefix of a block group or block GEOID.
// Ids one digit short are numeric GEOIDs of states 01-09 that lost their
// leading zero. Any other length yields "".
func StateFromGEOID(geoid string) string {
	geoid = strings.TrimSpace(geoid)
	if !isDigits(geoid) {
		return ""
	}
	switch len(geoid) {
	case blockGroupGEOIDLen, blockGEOIDLen:
		return geoid[:2]
	case blockGroupGEOIDLen - 1, blockGEOIDLen - 1:
		return "0" + geoid[:1]
	default:
		return ""
	}
}

// ResolveStateCode picks the state code of a block group: STATEFP when well formed,
// otherwise the prefix of the first usable GEOID.
func ResolveStateCode(statefp string, geoids ...string) string {
	if code := NormalizeFIPSState(statefp); code != "" {
		return code
	}
	for _, g := range geoids {
		if code := StateFromGEOID(g); code != "" {
			return code
		}
	}
	return ""
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
