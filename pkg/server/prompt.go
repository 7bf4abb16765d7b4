package server

import (
	"fmt"
	"strings"

	"neta/pkg/schema"
)

// Prompt construction is pure: the only variation besides the request fields
// is the three-part-punchline toggle, drawn once per request by the handler
// and threaded through both prompts.

const unspecified = "（指定なし）"

const systemPromptBase = `あなたはバラエティ番組の構成を数多く手がけるプロの放送作家です。依頼された条件に沿って、日本語で面白いエピソードトークを書き上げてください。

出力は必ず次の形のJSONオブジェクトのみとし、前置き・解説・コードブロックは一切付けないでください。
{"title": string, "body": string, "meta": {"structure": string[], "techniques": string[]}}

meta.structure には実際に使った構成ラベル（導入・展開・転・オチ）を順番どおりに、
meta.techniques には実際に使った笑いの技法ラベル（%s）を列挙してください。

次の内容は絶対に含めないでください：誹謗中傷、差別的な表現、個人情報、過度な下ネタ、実在する固有名詞の連呼。`

// systemPrompt encodes the scriptwriter persona, the output discipline and
// the content-safety exclusions. The instructed technique vocabulary switches
// with the toggle so the declared labels match what the body was asked to do.
func systemPrompt(threePart bool) string {
	techniques := "セリフ掛け合い・例えツッコミ・どんでん返し・伏線回収"
	if threePart {
		techniques += "・三段オチ"
	}
	return fmt.Sprintf(systemPromptBase, techniques)
}

// userPrompt renders the per-request instruction. Request fields are
// substituted verbatim; empty fields fall back to the unspecified marker.
func userPrompt(req schema.GenerateRequest, threePart bool) string {
	lower := lengthLowerBound(req.Length)
	upper := req.Length
	if upper > maxLength {
		upper = maxLength
	}

	var b strings.Builder
	b.WriteString("以下の条件でエピソードトークを1本書いてください。\n\n")
	fmt.Fprintf(&b, "テーマ: %s\n", orUnspecified(req.Theme))
	fmt.Fprintf(&b, "トーン: %s\n", orUnspecified(req.Genre))
	fmt.Fprintf(&b, "登場人物: %s\n\n", orUnspecified(req.Characters))
	fmt.Fprintf(&b, "本文は%d〜%d文字を目安にまとめてください。\n\n", lower, upper)
	b.WriteString(`構成の条件:
- 導入→展開→転→オチ の4部構成を必ず守る
- 小さな笑いどころを全体で3箇所以上、各部に散らして入れる
- 序盤に出したフレーズを終盤でもう一度使う「伏線回収」を1〜2箇所入れる
- 短い文を重ね、セリフと地の文を交互に挟んでテンポよく進める
`)
	if threePart {
		b.WriteString("- 同じ形の言い回しを三回重ね、三回目で期待を裏切る「三段オチ」を必ず1箇所入れる\n")
	}
	return b.String()
}

func orUnspecified(s string) string {
	if s == "" {
		return unspecified
	}
	return s
}
