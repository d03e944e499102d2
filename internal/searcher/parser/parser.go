// Package parser turns a raw query string into the ordered list of terms
// the executor scores.
package parser

import "strings"

// Delimiter separates terms in a query, as in ?q=apple+banana.
const Delimiter = "+"

type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse splits query on Delimiter. Terms keep their order and duplicates;
// empty segments are dropped. Terms are not normalized, matching the index.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0),
		RawQuery: query,
	}
	if query == "" {
		return plan
	}
	for _, term := range strings.Split(query, Delimiter) {
		if term == "" {
			continue
		}
		plan.Terms = append(plan.Terms, term)
	}
	return plan
}
