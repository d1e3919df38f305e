package speech

import (
	"context"
	"errors"
	"strings"

	"github.com/zhouzirui/homebot/backend/internal/model/speech"
)

// ErrUnsupported 宿主环境没有提供对应的语音能力
var ErrUnsupported = errors.New("speech capability not supported")

// Recognizer 语音识别能力，由宿主环境提供
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	Abort()
}

// Synthesizer 语音合成能力，由宿主环境提供。onEnd 在播放结束后调用，可能来自其他 goroutine。
type Synthesizer interface {
	Voices() []speech.Voice
	Speak(ctx context.Context, utterance speech.Utterance, onEnd func()) error
	Cancel()
}

// PickVoice 选择名称同时包含全部偏好片段的第一个声音，否则退回第一个声音。
func PickVoice(voices []speech.Voice, preferred []string) (speech.Voice, bool) {
	if len(voices) == 0 {
		return speech.Voice{}, false
	}

	for _, voice := range voices {
		if matchesAll(voice.Name, preferred) {
			return voice, true
		}
	}
	return voices[0], true
}

func matchesAll(name string, fragments []string) bool {
	if len(fragments) == 0 {
		return false
	}
	for _, fragment := range fragments {
		if !strings.Contains(name, fragment) {
			return false
		}
	}
	return true
}
