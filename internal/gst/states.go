package gst

import "regexp"

// gstinPattern is the structural form of a 15-character GSTIN.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

// stateNames maps the two-digit GST state codes 01-38. Codes 25 and 28 were
// reassigned historically and intentionally have no mapping.
var stateNames = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
}

// ValidGSTIN reports whether s is a structurally valid GSTIN. It does not
// verify the checksum character.
func ValidGSTIN(s string) bool {
	return gstinPattern.MatchString(s)
}

// StateFromGSTIN extracts the registered state code from a GSTIN. The second
// return is false when the GSTIN is malformed or the code has no mapping.
func StateFromGSTIN(gstin string) (string, bool) {
	if !ValidGSTIN(gstin) {
		return "", false
	}
	code := gstin[:2]
	if _, ok := stateNames[code]; !ok {
		return "", false
	}
	return code, true
}

// StateName resolves a two-digit code to the state name.
func StateName(code string) (string, bool) {
	name, ok := stateNames[code]
	return name, ok
}
