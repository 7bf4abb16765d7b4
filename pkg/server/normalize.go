package server

import (
	"encoding/json"
	"strings"

	"neta/pkg/schema"
	"neta/pkg/utils"
)

const (
	fallbackTitle = "タイトル取得失敗"
	noteMalformed = "モデル出力が所定の構造を満たさなかったため、本文には受信したテキストをそのまま返しています。"
	noteTooShort  = "生成された本文が目標文字数を大きく下回っています。再生成をおすすめします。"
)

// looseEpisode defers field decoding so wrong-typed values degrade to zero
// values instead of failing the whole parse.
type looseEpisode struct {
	Title json.RawMessage `json:"title"`
	Body  json.RawMessage `json:"body"`
	Meta  struct {
		Structure  json.RawMessage `json:"structure"`
		Techniques json.RawMessage `json:"techniques"`
	} `json:"meta"`
}

// normalizeEpisode turns raw model output into an Episode plus an advisory
// note ("" when the result is clean). It never fails: output that does not
// parse as the instructed structure is returned verbatim as the body with a
// placeholder title.
func normalizeEpisode(raw string, length int) (schema.Episode, string) {
	cleaned := utils.CleanJSON(raw)

	var loose looseEpisode
	if err := json.Unmarshal([]byte(cleaned), &loose); err != nil {
		return fallbackEpisode(raw), noteMalformed
	}

	ep := schema.Episode{
		Title: coerceString(loose.Title),
		Body:  coerceString(loose.Body),
		Meta: schema.Meta{
			Structure:  coerceStrings(loose.Meta.Structure),
			Techniques: coerceStrings(loose.Meta.Techniques),
		},
	}

	// body is the one required field; an episode without one is no episode
	if ep.Body == "" {
		return fallbackEpisode(raw), noteMalformed
	}

	if utils.RuneLen(ep.Body) < shortBodyThreshold(length) {
		return ep, noteTooShort
	}

	return ep, ""
}

func fallbackEpisode(raw string) schema.Episode {
	return schema.Episode{
		Title: fallbackTitle,
		Body:  strings.TrimSpace(raw),
		Meta: schema.Meta{
			Structure:  []string{},
			Techniques: []string{},
		},
	}
}

// lengthLowerBound is the bottom of the instructed length window.
func lengthLowerBound(length int) int {
	return length * 60 / 100
}

// shortBodyThreshold is deliberately below the instructed lower bound so
// only clear misses get flagged; a body just under the window is fine.
func shortBodyThreshold(length int) int {
	return lengthLowerBound(length) * 80 / 100
}

func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func coerceStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var ss []string
	if err := json.Unmarshal(raw, &ss); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
