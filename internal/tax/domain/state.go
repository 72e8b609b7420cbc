package domain

import (
	"strconv"
	"strings"
)

// States maps GST state codes to their official names.
// The first two digits of a GSTIN are one of these codes.
var States = map[string]string{
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
	"97": "Other Territory",
}

var stateCodesByName = func() map[string]string {
	out := make(map[string]string, len(States))
	for code, name := range States {
		out[normalizeName(name)] = code
	}
	return out
}()

// NormalizeState resolves a state code or an exact state name to its
// two-digit GST code. Names are matched case-insensitively after collapsing
// whitespace; anything not in the table is reported as unknown.
func NormalizeState(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}

	if n, err := strconv.Atoi(value); err == nil {
		if n <= 0 || n > 99 {
			return "", false
		}
		code := strconv.Itoa(n)
		if len(code) == 1 {
			code = "0" + code
		}
		if _, ok := States[code]; ok {
			return code, true
		}
		return "", false
	}

	code, ok := stateCodesByName[normalizeName(value)]
	return code, ok
}

// StateName returns the official name for a code, or "" when unknown.
func StateName(code string) string {
	normalized, ok := NormalizeState(code)
	if !ok {
		return ""
	}
	return States[normalized]
}

// StateFromGSTIN extracts the state code embedded in a GSTIN.
func StateFromGSTIN(gstin string) (string, bool) {
	gstin = strings.TrimSpace(gstin)
	if len(gstin) < 2 {
		return "", false
	}
	return NormalizeState(gstin[:2])
}

func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "&", " and ")
	return strings.Join(strings.Fields(name), " ")
}
