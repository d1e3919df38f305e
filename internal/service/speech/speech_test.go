package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/zhouzirui/homebot/backend/internal/model/speech"
)

type fakeRecognizer struct {
	starts   int
	stops    int
	aborts   int
	startErr error
}

func (f *fakeRecognizer) Start(context.Context) error {
	f.starts++
	return f.startErr
}

func (f *fakeRecognizer) Stop() error {
	f.stops++
	return nil
}

func (f *fakeRecognizer) Abort() { f.aborts++ }

type fakeSynthesizer struct {
	voices   []speech.Voice
	spoken   []speech.Utterance
	cancels  int
	speakErr error
	onEnd    func()
}

func (f *fakeSynthesizer) Voices() []speech.Voice { return f.voices }

func (f *fakeSynthesizer) Speak(_ context.Context, u speech.Utterance, onEnd func()) error {
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, u)
	f.onEnd = onEnd
	return nil
}

func (f *fakeSynthesizer) Cancel() { f.cancels++ }

func TestPickVoicePrefersAllFragments(t *testing.T) {
	voices := []speech.Voice{
		{Name: "Microsoft David"},
		{Name: "Google UK English Male"},
		{Name: "Google US English Female"},
	}

	got, ok := PickVoice(voices, []string{"Google", "Female"})
	if !ok || got.Name != "Google US English Female" {
		t.Fatalf("unexpected voice %+v", got)
	}

	got, ok = PickVoice(voices[:2], []string{"Google", "Female"})
	if !ok || got.Name != "Microsoft David" {
		t.Fatalf("expected first voice fallback, got %+v", got)
	}

	if _, ok := PickVoice(nil, []string{"Google"}); ok {
		t.Fatal("expected no voice for empty list")
	}
}

func TestListenerToggleAndSubmitOnce(t *testing.T) {
	rec := &fakeRecognizer{}
	var submitted []string
	l := NewListener(rec, func(text string) { submitted = append(submitted, text) })

	listening, err := l.Toggle(context.Background())
	if err != nil || !listening {
		t.Fatalf("expected listening, got %v err=%v", listening, err)
	}

	l.HandleResult("what colors are there")
	if len(submitted) != 0 {
		t.Fatal("transcript must not be submitted while still listening")
	}

	l.HandleEnd()
	l.HandleEnd()
	if len(submitted) != 1 || submitted[0] != "what colors are there" {
		t.Fatalf("expected one submission, got %v", submitted)
	}
	if l.Listening() {
		t.Fatal("expected listening to stop")
	}
}

func TestListenerNewSessionClearsTranscript(t *testing.T) {
	rec := &fakeRecognizer{}
	l := NewListener(rec, nil)

	_, _ = l.Toggle(context.Background())
	l.HandleResult("first")
	l.HandleEnd()

	_, _ = l.Toggle(context.Background())
	if l.Transcript() != "" {
		t.Fatalf("expected transcript reset, got %q", l.Transcript())
	}

	listening, err := l.Toggle(context.Background())
	if err != nil || listening {
		t.Fatalf("expected toggle to stop listening, got %v err=%v", listening, err)
	}
	if rec.starts != 2 || rec.stops != 1 {
		t.Fatalf("unexpected recognizer calls: starts=%d stops=%d", rec.starts, rec.stops)
	}
}

func TestListenerStartFailureStaysIdle(t *testing.T) {
	rec := &fakeRecognizer{startErr: errors.New("mic denied")}
	l := NewListener(rec, nil)

	if _, err := l.Toggle(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if l.Listening() {
		t.Fatal("listener should stay idle after failed start")
	}
}

func TestListenerUnsupported(t *testing.T) {
	l := NewListener(nil, nil)
	if _, err := l.Toggle(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	l.Close()
}

func TestListenerErrorEndsSession(t *testing.T) {
	rec := &fakeRecognizer{}
	var submitted []string
	l := NewListener(rec, func(text string) { submitted = append(submitted, text) })

	_, _ = l.Toggle(context.Background())
	l.HandleResult("hello")
	l.HandleError(errors.New("network"))
	if l.Listening() || len(submitted) != 1 {
		t.Fatalf("expected session to end with submission, listening=%v submitted=%v", l.Listening(), submitted)
	}

	_, _ = l.Toggle(context.Background())
	l.Close()
	if rec.aborts != 1 {
		t.Fatalf("expected abort on close, got %d", rec.aborts)
	}
}

func TestSpeakerAppliesSettings(t *testing.T) {
	synth := &fakeSynthesizer{voices: []speech.Voice{{Name: "Alex"}, {Name: "Google Female"}}}
	speaker := NewSpeaker(synth, speech.Settings{PreferredVoice: []string{"Google", "Female"}})

	ended := false
	if !speaker.Speak(context.Background(), "hello", func() { ended = true }) {
		t.Fatal("expected speech to start")
	}
	if synth.cancels != 1 {
		t.Fatalf("expected ongoing speech to be cancelled first, got %d", synth.cancels)
	}

	u := synth.spoken[0]
	if u.Voice != "Google Female" || u.Rate != 1 || u.Pitch != 1 || u.Volume != 1 || u.Language != "en-US" {
		t.Fatalf("unexpected utterance %+v", u)
	}

	synth.onEnd()
	if !ended {
		t.Fatal("expected onEnd to be forwarded")
	}
}

func TestSpeakerWithoutSynthesizer(t *testing.T) {
	speaker := NewSpeaker(nil, speech.DefaultSettings())
	if speaker.Supported() {
		t.Fatal("speaker without synthesizer must not be supported")
	}
	if speaker.Speak(context.Background(), "hello", func() { t.Fatal("onEnd must not run") }) {
		t.Fatal("expected no speech")
	}
	speaker.Stop()
}

func TestSpeakerSynthError(t *testing.T) {
	synth := &fakeSynthesizer{speakErr: errors.New("busy")}
	speaker := NewSpeaker(synth, speech.DefaultSettings())
	if speaker.Speak(context.Background(), "hello", nil) {
		t.Fatal("expected speak failure to report false")
	}
}
