package voice

import (
	"context"
	"sync"

	speechmodel "github.com/zhouzirui/homebot/backend/internal/model/speech"
)

// browserBridge 把识别与合成转成发往浏览器的指令，并在收到客户端事件时完成。
type browserBridge struct {
	send func(action string, data map[string]any)

	mu      sync.Mutex
	voices  []speechmodel.Voice
	pending func()
	lang    string
}

func newBrowserBridge(language string, send func(action string, data map[string]any)) *browserBridge {
	return &browserBridge{send: send, lang: language}
}

func (b *browserBridge) Start(context.Context) error {
	b.mu.Lock()
	lang := b.lang
	b.mu.Unlock()
	b.send("listen_start", map[string]any{"language": lang, "continuous": false, "interimResults": false})
	return nil
}

func (b *browserBridge) Stop() error {
	b.send("listen_stop", nil)
	return nil
}

func (b *browserBridge) Abort() {
	b.send("listen_abort", nil)
}

func (b *browserBridge) Voices() []speechmodel.Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]speechmodel.Voice(nil), b.voices...)
}

func (b *browserBridge) Speak(_ context.Context, u speechmodel.Utterance, onEnd func()) error {
	b.mu.Lock()
	b.pending = onEnd
	b.mu.Unlock()

	b.send("speak", map[string]any{
		"text":   u.Text,
		"voice":  u.Voice,
		"lang":   u.Language,
		"rate":   u.Rate,
		"pitch":  u.Pitch,
		"volume": u.Volume,
	})
	return nil
}

// Cancel 取消播放，被取消的 utterance 不再触发 onEnd。
func (b *browserBridge) Cancel() {
	b.mu.Lock()
	hadPending := b.pending != nil
	b.pending = nil
	b.mu.Unlock()
	if hadPending {
		b.send("speak_cancel", nil)
	}
}

func (b *browserBridge) setVoices(voices []speechmodel.Voice) {
	b.mu.Lock()
	b.voices = append([]speechmodel.Voice(nil), voices...)
	b.mu.Unlock()
}

func (b *browserBridge) setLanguage(lang string) {
	b.mu.Lock()
	b.lang = lang
	b.mu.Unlock()
}

// speechEnded 客户端播放结束，回调最多执行一次。
func (b *browserBridge) speechEnded() {
	b.mu.Lock()
	onEnd := b.pending
	b.pending = nil
	b.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}
