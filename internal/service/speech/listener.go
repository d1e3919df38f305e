package speech

import (
	"context"
	"log"
	"strings"
	"sync"
)

// Listener 管理一次次语音识别会话的开关状态与识别文本。
// 当识别文本已产生且识别已结束时，文本会被提交一次。
type Listener struct {
	mu         sync.Mutex
	rec        Recognizer
	submit     func(string)
	listening  bool
	transcript string
	delivered  bool
}

// NewListener 创建 Listener。rec 为 nil 时表示当前环境不支持语音识别。
func NewListener(rec Recognizer, submit func(string)) *Listener {
	return &Listener{rec: rec, submit: submit}
}

// Supported 返回是否可以开始语音识别。
func (l *Listener) Supported() bool {
	return l != nil && l.rec != nil
}

// Listening 返回当前是否在识别中。
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// Transcript 返回最近一次识别得到的文本。
func (l *Listener) Transcript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transcript
}

// Toggle 识别中则停止，否则清空上一次的文本并开始新的识别。返回切换后的状态。
func (l *Listener) Toggle(ctx context.Context) (bool, error) {
	if !l.Supported() {
		return false, ErrUnsupported
	}

	l.mu.Lock()
	if l.listening {
		l.listening = false
		l.mu.Unlock()
		if err := l.rec.Stop(); err != nil {
			log.Printf("[speech] stop recognition failed: %v", err)
		}
		l.deliver()
		return false, nil
	}

	l.transcript = ""
	l.delivered = false
	l.mu.Unlock()

	if err := l.rec.Start(ctx); err != nil {
		return false, err
	}

	l.mu.Lock()
	l.listening = true
	l.mu.Unlock()
	return true, nil
}

// HandleResult 记录识别结果。
func (l *Listener) HandleResult(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	l.mu.Lock()
	l.transcript = text
	l.delivered = false
	l.mu.Unlock()
	l.deliver()
}

// HandleEnd 识别会话结束。
func (l *Listener) HandleEnd() {
	l.mu.Lock()
	l.listening = false
	l.mu.Unlock()
	l.deliver()
}

// HandleError 识别出错时结束当前会话。
func (l *Listener) HandleError(err error) {
	log.Printf("[speech] recognition error: %v", err)
	l.HandleEnd()
}

// Close 放弃进行中的识别。
func (l *Listener) Close() {
	if !l.Supported() {
		return
	}
	l.mu.Lock()
	wasListening := l.listening
	l.listening = false
	l.mu.Unlock()
	if wasListening {
		l.rec.Abort()
	}
}

func (l *Listener) deliver() {
	l.mu.Lock()
	if l.listening || l.delivered || l.transcript == "" {
		l.mu.Unlock()
		return
	}
	l.delivered = true
	text := l.transcript
	l.mu.Unlock()

	if l.submit != nil {
		l.submit(text)
	}
}
