// Package intel extracts forensic identifiers and risk keywords from
// raw adversary text. Extraction is purely lexical: case-insensitive
// regex and vocabulary matching, no model calls.
package intel

import (
	"regexp"
	"strings"
)

var (
	// Candidate phone tokens; digits are normalized afterwards so the
	// optional +91 / 91 / 0 prefix and embedded separators all fold to
	// the same 10-digit mobile number.
	phoneCandidateRe = regexp.MustCompile(`\+?\d(?:[\s-]?\d){8,12}`)

	upiRe = regexp.MustCompile(`\b([a-z0-9][a-z0-9._-]{1,60})@([a-z]{2,20})\b`)

	urlRe      = regexp.MustCompile(`\bhttps?://[^\s<>"']+`)
	deeplinkRe = regexp.MustCompile(`\b(?:upi|paytm|phonepe|gpay)://[^\s<>"']+`)

	digitRunRe = regexp.MustCompile(`\b\d{11,18}\b`)

	employeeRe = regexp.MustCompile(`\b(?:employee|officer|staff|agent|badge|emp)\s*(?:id|code|no|number)?\s*[:\-]\s*([a-z0-9][a-z0-9\-/]{1,24})\b`)
	caseRe     = regexp.MustCompile(`\b(?:case|ref|reference|complaint|ticket|fir)\s*(?:id|code|no|number)?\s*[:\-]\s*([a-z0-9][a-z0-9\-/]{1,24})\b`)

	emailRe = regexp.MustCompile(`\b[a-z0-9][a-z0-9._%+-]*@[a-z0-9.-]+\.[a-z]{2,}\b`)
)

// upiSuffixes is the allowlist of payment-handle providers. A bare
// local@word match counts only when the word is one of these, which
// keeps emails and stray mentions out of the UPI set.
var upiSuffixes = map[string]struct{}{
	"ybl": {}, "ibl": {}, "axl": {}, "apl": {}, "upi": {},
	"paytm": {}, "okicici": {}, "okhdfcbank": {}, "okaxis": {},
	"oksbi": {}, "sbi": {}, "icici": {}, "hdfcbank": {}, "axisbank": {},
	"kotak": {}, "yapl": {}, "freecharge": {}, "airtel": {},
}

var orgVocabulary = []string{
	"sbi", "state bank", "hdfc", "icici", "axis bank", "kotak",
	"rbi", "reserve bank", "income tax", "paytm", "phonepe",
	"google pay", "amazon", "flipkart", "microsoft", "trai",
	"customs", "cyber cell", "police", "electricity board", "lic",
}

// keywordVocabulary maps suspicious terms to their signal class; the
// scorer consumes the classes, the intelligence record keeps the terms.
var keywordVocabulary = map[string]string{
	"urgent": "urgency", "immediately": "urgency", "right now": "urgency",
	"within 24 hours": "urgency", "expires": "urgency", "last chance": "urgency",
	"act now": "urgency", "jaldi": "urgency",

	"blocked": "threat", "suspended": "threat", "deactivated": "threat",
	"legal action": "threat", "arrest": "threat", "penalty": "threat",
	"fine": "threat", "police complaint": "threat", "frozen": "threat",

	"otp": "credential", "pin": "credential", "cvv": "credential",
	"password": "credential", "passcode": "credential", "mpin": "credential",
	"account number": "credential", "card number": "credential",
	"aadhaar": "credential", "pan card": "credential",

	"bank officer": "authority", "rbi": "authority", "official": "authority",
	"verification team": "authority", "head office": "authority",
	"government": "authority", "department": "authority", "kyc": "authority",

	"pay": "payment", "payment": "payment", "transfer": "payment",
	"upi": "payment", "refund": "payment", "processing fee": "payment",
	"transaction": "payment", "deposit": "payment",
}

// Normalize lower-cases text and folds punctuation to spaces, keeping
// only the symbols identifiers need (@ . : / - +).
func Normalize(text string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '@' || r == '.' || r == ':' || r == '/' || r == '-' || r == '+':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Extract pulls identifiers and suspicious keywords from the given
// texts. Deterministic and pure: same texts, same record.
func Extract(texts ...string) Intelligence {
	var out Intelligence
	for _, raw := range texts {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		norm := Normalize(raw)

		phones := extractPhones(norm)
		out.PhoneNumbers = append(out.PhoneNumbers, phones...)
		out.UpiIds = append(out.UpiIds, extractUpiIds(norm)...)
		out.PhishingLinks = append(out.PhishingLinks, extractLinks(norm)...)
		out.BankAccounts = append(out.BankAccounts, extractAccounts(norm, phones)...)
		out.EmployeeIds = append(out.EmployeeIds, extractGroups(employeeRe, norm)...)
		out.CaseIds = append(out.CaseIds, extractGroups(caseRe, norm)...)
		out.OrgNames = append(out.OrgNames, extractOrgs(norm)...)
		out.Emails = append(out.Emails, extractEmails(norm)...)
		out.SuspiciousKeywords = append(out.SuspiciousKeywords, Keywords(norm)...)
	}
	return out.Normalize()
}

// Keywords returns the suspicious vocabulary terms present in
// normalized text.
func Keywords(norm string) []string {
	var found []string
	for term := range keywordVocabulary {
		if strings.Contains(norm, term) {
			found = append(found, term)
		}
	}
	return found
}

// KeywordClasses returns the set of signal classes (urgency, threat,
// credential, authority, payment) present in normalized text.
func KeywordClasses(norm string) map[string]bool {
	classes := make(map[string]bool)
	for term, class := range keywordVocabulary {
		if strings.Contains(norm, term) {
			classes[class] = true
		}
	}
	return classes
}

func extractPhones(norm string) []string {
	var out []string
	for _, m := range phoneCandidateRe.FindAllString(norm, -1) {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m)
		switch {
		case len(digits) == 11 && digits[0] == '0':
			digits = digits[1:]
		case len(digits) == 12 && strings.HasPrefix(digits, "91"):
			digits = digits[2:]
		}
		if len(digits) == 10 && digits[0] >= '6' && digits[0] <= '9' {
			out = append(out, digits)
		}
	}
	return out
}

func extractUpiIds(norm string) []string {
	var out []string
	for _, m := range upiRe.FindAllStringSubmatch(norm, -1) {
		if _, ok := upiSuffixes[m[2]]; ok {
			out = append(out, m[1]+"@"+m[2])
		}
	}
	return out
}

func extractLinks(norm string) []string {
	var out []string
	for _, re := range []*regexp.Regexp{urlRe, deeplinkRe} {
		for _, m := range re.FindAllString(norm, -1) {
			out = append(out, strings.TrimRight(m, ".,;:!?)"))
		}
	}
	return out
}

// extractAccounts keeps 11-18 digit runs that are not just a detected
// phone number with a country prefix glued on.
func extractAccounts(norm string, phones []string) []string {
	var out []string
	for _, run := range digitRunRe.FindAllString(norm, -1) {
		dup := false
		for _, p := range phones {
			if strings.HasSuffix(run, p) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, run)
		}
	}
	return out
}

func extractGroups(re *regexp.Regexp, norm string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(norm, -1) {
		out = append(out, m[1])
	}
	return out
}

func extractOrgs(norm string) []string {
	var out []string
	for _, org := range orgVocabulary {
		if strings.Contains(norm, org) {
			out = append(out, org)
		}
	}
	return out
}

// extractEmails requires a dotted domain so payment handles, whose
// suffixes are bare provider words, never land in both sets.
func extractEmails(norm string) []string {
	return emailRe.FindAllString(norm, -1)
}
