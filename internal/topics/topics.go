// Package topics matches post text against a fixed relevance vocabulary
// and measures how far a conversation has drifted from its root.
package topics

import "strings"

// Extract returns the vocabulary labels present in text, matched by
// case-insensitive substring. Labels come back in vocabulary order and
// each label appears at most once; match counts carry no weight.
func Extract(text string, vocabulary []string) []string {
	if text == "" || len(vocabulary) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var matched []string
	seen := make(map[string]bool, len(vocabulary))
	for _, label := range vocabulary {
		key := strings.ToLower(label)
		if key == "" || seen[key] {
			continue
		}
		if strings.Contains(lower, key) {
			matched = append(matched, label)
			seen[key] = true
		}
	}
	return matched
}

// Drift returns the Jaccard distance between the topic sets of the root
// and branch texts: 1 - |intersection|/|union|. A root with no
// recognizable topics yields 0 (nothing to drift from). A topic-bearing
// root with a topicless branch yields 0.5: silence on a focused root is
// ambiguous, not off-topic.
func Drift(rootText, branchText string, vocabulary []string) float64 {
	return DriftBetween(Extract(rootText, vocabulary), Extract(branchText, vocabulary))
}

// DriftBetween is Drift over already-extracted topic sets. Callers that
// compute the root topics once per traversal use this form.
func DriftBetween(rootTopics, branchTopics []string) float64 {
	if len(rootTopics) == 0 {
		return 0
	}
	if len(branchTopics) == 0 {
		return 0.5
	}

	rootSet := make(map[string]bool, len(rootTopics))
	for _, t := range rootTopics {
		rootSet[strings.ToLower(t)] = true
	}
	branchSet := make(map[string]bool, len(branchTopics))
	for _, t := range branchTopics {
		branchSet[strings.ToLower(t)] = true
	}

	intersection := 0
	for t := range rootSet {
		if branchSet[t] {
			intersection++
		}
	}
	union := len(rootSet) + len(branchSet) - intersection
	if union == 0 {
		return 0
	}
	return 1 - float64(intersection)/float64(union)
}
