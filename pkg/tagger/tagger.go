// Package tagger labels narrative phases and comedic techniques found in
// generated Japanese episode-talk text. Detection is a small ordered table of
// (label, predicate) pairs; predicates are independent and labels are
// appended in table order, so each one can be unit-tested alone.
package tagger

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aryann/difflib"
)

type rule struct {
	label string
	match func(body string) bool
}

// Structure phase labels, in arc order: 導入 (setup), 展開 (escalation),
// 転 (reversal), オチ (payoff).
var structureRules = []rule{
	{"導入", hasSectionMarker("導入")},
	{"展開", hasSectionMarker("展開")},
	{"転", hasSectionMarker("転")},
	{"オチ", hasSectionMarker("オチ")},
}

var threePartRX = regexp.MustCompile(`(?s)(一つ目|１つ目|1つ目|まず).+(二つ目|２つ目|2つ目|次に|続いて).+(三つ目|３つ目|3つ目|最後に|極めつけ)`)

var techniqueRules = []rule{
	{"セリフ掛け合い", func(body string) bool {
		return strings.Count(body, "「") >= 2 && strings.Contains(body, "」")
	}},
	{"例えツッコミ", containsAny("まるで", "みたい", "かのよう", "例えるなら")},
	{"どんでん返し", containsAny("ところが", "まさか", "実は", "かと思いきや", "と思ったら")},
	{"三段オチ", func(body string) bool {
		return threePartRX.MatchString(body)
	}},
	{"伏線回収", hasCallback},
}

// Structures returns the narrative-phase labels whose section markers appear
// in the body, in arc order.
func Structures(body string) []string {
	return apply(structureRules, body)
}

// Techniques returns the comedic-technique labels detected in the body, in
// table order.
func Techniques(body string) []string {
	return apply(techniqueRules, body)
}

func apply(rules []rule, body string) []string {
	out := make([]string, 0, len(rules))
	if strings.TrimSpace(body) == "" {
		return out
	}
	for _, r := range rules {
		if r.match(body) {
			out = append(out, r.label)
		}
	}
	return out
}

func hasSectionMarker(name string) func(string) bool {
	markers := []string{
		"【" + name + "】",
		"［" + name + "］",
		"[" + name + "]",
		"（" + name + "）",
		name + "：",
	}
	return func(body string) bool {
		for _, m := range markers {
			if strings.Contains(body, m) {
				return true
			}
		}
		return false
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(body string) bool {
		for _, sub := range subs {
			if strings.Contains(body, sub) {
				return true
			}
		}
		return false
	}
}

// minCallbackRunes filters out particles and short connectives that recur in
// any Japanese text without being a motif.
const minCallbackRunes = 5

// hasCallback reports whether a phrase from the opening third of the body
// recurs in the closing third. Both parts are split into punctuation-bounded
// phrases and diffed; a sufficiently long phrase common to both is treated as
// a recurring motif.
func hasCallback(body string) bool {
	phrases := splitPhrases(body)
	if len(phrases) < 6 {
		return false
	}
	third := len(phrases) / 3
	opening := phrases[:third]
	closing := phrases[len(phrases)-third:]

	for _, rec := range difflib.Diff(opening, closing) {
		if rec.Delta != difflib.Common {
			continue
		}
		if utf8.RuneCountInString(rec.Payload) >= minCallbackRunes {
			return true
		}
	}
	return false
}

var phraseRX = regexp.MustCompile(`[。、！？!?\n「」]+`)

func splitPhrases(body string) []string {
	parts := phraseRX.Split(body, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
