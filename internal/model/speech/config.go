package speech

// Settings 语音播放的默认参数
type Settings struct {
	Language       string   `json:"language"`       // en-US, zh-CN, etc.
	Rate           float64  `json:"rate"`           // 语速倍率
	Pitch          float64  `json:"pitch"`          // 音高倍率
	Volume         float64  `json:"volume"`         // 音量 0.0-1.0
	PreferredVoice []string `json:"preferredVoice"` // 声音名称需同时包含的片段
}

// DefaultSettings 与浏览器默认播放参数保持一致
func DefaultSettings() Settings {
	return Settings{
		Language:       "en-US",
		Rate:           1.0,
		Pitch:          1.0,
		Volume:         1.0,
		PreferredVoice: []string{"Google", "Female"},
	}
}
