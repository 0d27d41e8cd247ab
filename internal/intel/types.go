package intel

import (
	"sort"
	"strings"
)

// Intelligence is the cumulative set of forensic identifiers pulled out
// of adversary messages. Every category is a set: no duplicates, no
// empty strings, order not significant.
type Intelligence struct {
	PhoneNumbers       []string `json:"phoneNumbers"`
	UpiIds             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	BankAccounts       []string `json:"bankAccounts"`
	EmployeeIds        []string `json:"employeeIds"`
	CaseIds            []string `json:"caseIds"`
	OrgNames           []string `json:"orgNames"`
	Emails             []string `json:"emails"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Merge unions two intelligence records per category. It is commutative
// and idempotent; inputs are not mutated.
func Merge(a, b Intelligence) Intelligence {
	return Intelligence{
		PhoneNumbers:       unionSet(a.PhoneNumbers, b.PhoneNumbers),
		UpiIds:             unionSet(a.UpiIds, b.UpiIds),
		PhishingLinks:      unionSet(a.PhishingLinks, b.PhishingLinks),
		BankAccounts:       unionSet(a.BankAccounts, b.BankAccounts),
		EmployeeIds:        unionSet(a.EmployeeIds, b.EmployeeIds),
		CaseIds:            unionSet(a.CaseIds, b.CaseIds),
		OrgNames:           unionSet(a.OrgNames, b.OrgNames),
		Emails:             unionSet(a.Emails, b.Emails),
		SuspiciousKeywords: unionSet(a.SuspiciousKeywords, b.SuspiciousKeywords),
	}
}

// Normalize sorts every category and drops duplicates and empties, so
// two equivalent records compare equal and serialization is stable.
func (in Intelligence) Normalize() Intelligence {
	return Merge(in, Intelligence{})
}

// Arrays returns a normalized copy with every empty category
// materialized as an empty slice, so the wire encoding is always a
// JSON array and never null.
func (in Intelligence) Arrays() Intelligence {
	out := in.Normalize()
	for _, set := range []*[]string{
		&out.PhoneNumbers, &out.UpiIds, &out.PhishingLinks,
		&out.BankAccounts, &out.EmployeeIds, &out.CaseIds,
		&out.OrgNames, &out.Emails, &out.SuspiciousKeywords,
	} {
		if *set == nil {
			*set = []string{}
		}
	}
	return out
}

// HasLink reports whether any link or payment deeplink has been seen.
func (in Intelligence) HasLink() bool { return len(in.PhishingLinks) > 0 }

// HasUpi reports whether any payment handle has been seen.
func (in Intelligence) HasUpi() bool { return len(in.UpiIds) > 0 }

// HasPhone reports whether any phone number has been seen.
func (in Intelligence) HasPhone() bool { return len(in.PhoneNumbers) > 0 }

func unionSet(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
