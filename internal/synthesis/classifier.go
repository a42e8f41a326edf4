package synthesis

import (
	"fmt"
	"sort"
	"strings"
)

// Importance is the classified weight of a requirement.
type Importance string

const (
	ImportanceRequired  Importance = "required"
	ImportancePreferred Importance = "preferred"
	ImportanceExcluded  Importance = "excluded"
)

// RequirementItem is one raw extraction from a single respondent, before any
// cross-respondent merging.
type RequirementItem struct {
	Keyword       string
	Category      string
	ImportanceRaw string
	ContextQuote  string
	MentionedBy   []string
}

// ClassifiedRequirement is a merged requirement with its final importance.
// Disjunctive requirements produced by conflict resolution carry an
// "A or B" keyword and the union of both mention sets.
type ClassifiedRequirement struct {
	Keyword        string
	Category       string
	MentionCount   int
	Importance     Importance
	ResolutionNote string
	MentionedBy    []string
	Quotes         []string
}

// RequiredThreshold is the minimum number of distinct respondents that makes
// a requirement required: at least half, rounded up.
func RequiredThreshold(respondents int) int {
	return (respondents + 1) / 2
}

type mergedItem struct {
	keyword    string
	category   string
	order      int
	mentioners map[string]bool
	requiredBy map[string]bool
	excludedBy map[string]bool
	quotes     []string
}

// Classify merges raw per-respondent items by keyword and assigns each
// merged requirement an importance. The rules are fixed:
//   - mentioned by at least half the respondents (rounded up): required,
//   - a single mention: preferred, unless that respondent marked it required,
//   - required-marked keywords in the same category backed by disjoint
//     respondent sets, none reaching the threshold on its own: merged into
//     one disjunctive required entry plus a Conflict,
//   - a required-marked keyword with no conflict partner: preferred, with a
//     note recording the demotion.
//
// The oracle never participates; identical inputs always classify the same.
func Classify(items []RequirementItem, respondents int) ([]ClassifiedRequirement, []Conflict) {
	merged := mergeItems(items)
	threshold := RequiredThreshold(respondents)

	disjunctive, conflicts, consumed := resolveConflicts(merged, threshold)

	classified := make([]ClassifiedRequirement, 0, len(merged)+len(disjunctive))
	for _, m := range merged {
		if consumed[m.keyword] {
			continue
		}
		classified = append(classified, classifyOne(m, threshold))
	}
	classified = append(classified, disjunctive...)

	sortClassified(classified)
	return classified, conflicts
}

func classifyOne(m *mergedItem, threshold int) ClassifiedRequirement {
	req := ClassifiedRequirement{
		Keyword:      m.keyword,
		Category:     m.category,
		MentionCount: len(m.mentioners),
		MentionedBy:  sortedKeys(m.mentioners),
		Quotes:       m.quotes,
	}

	switch {
	case len(m.excludedBy) > 0 && len(m.excludedBy) >= len(m.requiredBy):
		req.Importance = ImportanceExcluded
	case req.MentionCount >= threshold:
		req.Importance = ImportanceRequired
	case len(m.requiredBy) > 0:
		req.Importance = ImportancePreferred
		req.ResolutionNote = fmt.Sprintf(
			"marked required by %d of the respondents but below the %d-mention threshold",
			len(m.requiredBy), threshold)
	default:
		req.Importance = ImportancePreferred
	}

	return req
}

// resolveConflicts finds same-category keywords that individual respondents
// insist on, with no respondent backing more than one of them and none
// popular enough to win outright. Each such group collapses into a single
// disjunctive requirement.
func resolveConflicts(merged []*mergedItem, threshold int) ([]ClassifiedRequirement, []Conflict, map[string]bool) {
	byCategory := make(map[string][]*mergedItem)
	for _, m := range merged {
		if m.category == "" || len(m.requiredBy) == 0 || len(m.mentioners) >= threshold {
			continue
		}
		byCategory[m.category] = append(byCategory[m.category], m)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var requirements []ClassifiedRequirement
	var conflicts []Conflict
	consumed := make(map[string]bool)

	for _, category := range categories {
		group := byCategory[category]
		if len(group) < 2 || !pairwiseDisjoint(group) {
			continue
		}

		sort.Slice(group, func(i, j int) bool { return group[i].order < group[j].order })

		options := make([]string, 0, len(group))
		mentioners := make(map[string]bool)
		var quotes []string
		for _, m := range group {
			options = append(options, m.keyword)
			for id := range m.mentioners {
				mentioners[id] = true
			}
			quotes = append(quotes, m.quotes...)
			consumed[m.keyword] = true
		}

		requirements = append(requirements, ClassifiedRequirement{
			Keyword:        strings.Join(options, " or "),
			Category:       category,
			MentionCount:   len(mentioners),
			Importance:     ImportanceRequired,
			ResolutionNote: "merged from conflicting hard requirements in the same category",
			MentionedBy:    sortedKeys(mentioners),
			Quotes:         quotes,
		})
		conflicts = append(conflicts, Conflict{
			Issue:      fmt.Sprintf("%s: %s", category, strings.Join(options, " vs ")),
			Options:    options,
			Resolution: "either option satisfies the requirement",
		})
	}

	return requirements, conflicts, consumed
}

func mergeItems(items []RequirementItem) []*mergedItem {
	index := make(map[string]*mergedItem)
	var ordered []*mergedItem

	for _, item := range items {
		key := strings.ToLower(item.Keyword)
		m, ok := index[key]
		if !ok {
			m = &mergedItem{
				keyword:    item.Keyword,
				category:   item.Category,
				order:      len(ordered),
				mentioners: make(map[string]bool),
				requiredBy: make(map[string]bool),
				excludedBy: make(map[string]bool),
			}
			index[key] = m
			ordered = append(ordered, m)
		}
		if m.category == "" {
			m.category = item.Category
		}
		for _, id := range item.MentionedBy {
			m.mentioners[id] = true
			switch item.ImportanceRaw {
			case string(ImportanceRequired):
				m.requiredBy[id] = true
			case string(ImportanceExcluded):
				m.excludedBy[id] = true
			}
		}
		if quote := strings.TrimSpace(item.ContextQuote); quote != "" {
			m.quotes = append(m.quotes, quote)
		}
	}

	return ordered
}

// pairwiseDisjoint reports whether no respondent appears behind more than
// one keyword of the group. A shared backer means the keywords are
// complementary, not conflicting.
func pairwiseDisjoint(group []*mergedItem) bool {
	seen := make(map[string]bool)
	for _, m := range group {
		for id := range m.mentioners {
			if seen[id] {
				return false
			}
			seen[id] = true
		}
	}
	return true
}

var importanceRank = map[Importance]int{
	ImportanceRequired:  0,
	ImportancePreferred: 1,
	ImportanceExcluded:  2,
}

func sortClassified(classified []ClassifiedRequirement) {
	sort.Slice(classified, func(i, j int) bool {
		a, b := classified[i], classified[j]
		if importanceRank[a.Importance] != importanceRank[b.Importance] {
			return importanceRank[a.Importance] < importanceRank[b.Importance]
		}
		if a.MentionCount != b.MentionCount {
			return a.MentionCount > b.MentionCount
		}
		return a.Keyword < b.Keyword
	})
}

// buildResult derives the deterministic part of the Result: the frequency
// buckets, the keyword list and a default priority order. The judgment call
// only overlays prose on top of it.
func buildResult(classified []ClassifiedRequirement, conflicts []Conflict, respondents int) *Result {
	result := &Result{
		Consensus:     []string{},
		Majority:      []string{},
		Minority:      []string{},
		Conflicts:     conflicts,
		Keywords:      make([]string, 0, len(classified)),
		PriorityOrder: make([]string, 0, len(classified)),
	}
	if result.Conflicts == nil {
		result.Conflicts = []Conflict{}
	}

	threshold := RequiredThreshold(respondents)
	for _, req := range classified {
		switch {
		case respondents >= 2 && req.MentionCount >= 2:
			result.Consensus = append(result.Consensus, req.Keyword)
		case req.MentionCount >= threshold:
			result.Majority = append(result.Majority, req.Keyword)
		case req.MentionCount == 1:
			result.Minority = append(result.Minority, req.Keyword)
		}
	}

	byCount := make([]ClassifiedRequirement, len(classified))
	copy(byCount, classified)
	sort.Slice(byCount, func(i, j int) bool {
		if byCount[i].MentionCount != byCount[j].MentionCount {
			return byCount[i].MentionCount > byCount[j].MentionCount
		}
		return byCount[i].Keyword < byCount[j].Keyword
	})
	for _, req := range byCount {
		result.Keywords = append(result.Keywords, req.Keyword)
	}

	// classified is already importance-first, so it doubles as the default
	// priority order until the judgment call refines it.
	for _, req := range classified {
		result.PriorityOrder = append(result.PriorityOrder, req.Keyword)
	}

	return result
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
