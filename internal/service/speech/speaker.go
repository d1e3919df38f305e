package speech

import (
	"context"
	"log"
	"strings"

	"github.com/zhouzirui/homebot/backend/internal/model/speech"
)

// Speaker 在可选的 Synthesizer 之上应用默认播放参数。
type Speaker struct {
	synth    Synthesizer
	settings speech.Settings
}

// NewSpeaker 创建 Speaker。synth 为 nil 时表示当前环境不支持语音合成。
func NewSpeaker(synth Synthesizer, settings speech.Settings) *Speaker {
	defaults := speech.DefaultSettings()
	if settings.Language == "" {
		settings.Language = defaults.Language
	}
	if settings.Rate <= 0 {
		settings.Rate = defaults.Rate
	}
	if settings.Pitch <= 0 {
		settings.Pitch = defaults.Pitch
	}
	if settings.Volume <= 0 || settings.Volume > 1 {
		settings.Volume = defaults.Volume
	}
	return &Speaker{synth: synth, settings: settings}
}

// Supported 返回是否可以播放语音。
func (s *Speaker) Supported() bool {
	return s != nil && s.synth != nil
}

// Speak 取消正在进行的播放后朗读文本。返回 false 表示没有开始播放，此时 onEnd 不会被调用。
func (s *Speaker) Speak(ctx context.Context, text string, onEnd func()) bool {
	if !s.Supported() || strings.TrimSpace(text) == "" {
		return false
	}

	s.synth.Cancel()

	utterance := speech.Utterance{
		Text:     text,
		Language: s.settings.Language,
		Rate:     s.settings.Rate,
		Pitch:    s.settings.Pitch,
		Volume:   s.settings.Volume,
	}
	if voice, ok := PickVoice(s.synth.Voices(), s.settings.PreferredVoice); ok {
		utterance.Voice = voice.Name
	}

	if err := s.synth.Speak(ctx, utterance, onEnd); err != nil {
		log.Printf("[speech] speak failed: %v", err)
		return false
	}
	return true
}

// Stop 取消正在进行的播放。
func (s *Speaker) Stop() {
	if s.Supported() {
		s.synth.Cancel()
	}
}
