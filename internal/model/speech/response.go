package speech

// Voice 宿主环境提供的一个可用声音
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang,omitempty"`
}
