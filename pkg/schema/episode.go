package schema

// GenerateRequest はバリデーション済みの生成条件です。
// 未指定フィールドは既定値（空文字 / 350字）に解決されています。
type GenerateRequest struct {
	Theme      string `json:"theme"      validate:"max=200"`
	Genre      string `json:"genre"      validate:"max=100"`
	Characters string `json:"characters" validate:"max=200"`
	Length     int    `json:"length"     validate:"min=50,max=2000"`
}

// Episode は AI モデルから返される台本全体の構造です。
type Episode struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Meta  Meta   `json:"meta"`
}

// Meta は出力に使われた構成・技法のラベル列を保持します。
type Meta struct {
	Structure  []string `json:"structure"`
	Techniques []string `json:"techniques"`
}

// GenerateResponse は POST /api/generate の 200 応答です。
// Note は劣化シグナル（構造パース失敗・文字数不足）のときだけ付きます。
type GenerateResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Meta  Meta   `json:"meta"`
	Note  string `json:"note,omitempty"`
}
