package service

import (
	"encoding/json"
	"strings"

	"github.com/noah-isme/hr-workflow-api/internal/models"
)

const nationalNumberDigits = 10

// PhoneNumber is the decomposed form the Record Store expects.
type PhoneNumber struct {
	CountryCode string `json:"countryCode"`
	Number      string `json:"number"`
}

// SplitPhone decomposes a free-form phone number. "+CC NNN" splits at the first
// space; "+CCNNNNNNNNNN" keeps the trailing ten digits as the number; anything
// without a leading plus gets defaultCode.
func SplitPhone(raw, defaultCode string) PhoneNumber {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "+") {
		return PhoneNumber{CountryCode: defaultCode, Number: digitsOnly(raw)}
	}
	if code, rest, ok := strings.Cut(raw, " "); ok {
		return PhoneNumber{CountryCode: "+" + digitsOnly(code), Number: digitsOnly(rest)}
	}
	digits := digitsOnly(raw)
	if len(digits) <= nationalNumberDigits {
		return PhoneNumber{CountryCode: defaultCode, Number: digits}
	}
	split := len(digits) - nationalNumberDigits
	return PhoneNumber{CountryCode: "+" + digits[:split], Number: digits[split:]}
}

// decomposePhones rewrites string phone fields into {countryCode, number}
// objects. Values that are already objects or blank are left alone.
func decomposePhones(data models.Fields, fields []string, defaultCode string) models.Fields {
	for _, field := range fields {
		v, ok := data.Get(field)
		if !ok {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		p := SplitPhone(s, defaultCode)
		data.Set(field, map[string]any{"countryCode": p.CountryCode, "number": p.Number})
	}
	return data
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
