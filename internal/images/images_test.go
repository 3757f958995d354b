package images

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ambitious/internal/model"
)

type fakeCompleter struct {
	out string
	err error
}

func (f fakeCompleter) Complete(context.Context, string, string) (string, error) { return f.out, f.err }

type fakeModel struct {
	calls int
	ref   *Image
	err   error
}

func (m *fakeModel) Generate(_ context.Context, prompt string, ref *Image) (Image, error) {
	m.calls++
	m.ref = ref
	if m.err != nil {
		return Image{}, m.err
	}
	return Image{Data: []byte("png:" + prompt[:5]), MIMEType: "image/png"}, nil
}

type memStorage map[string]Image

func (s memStorage) Put(_ context.Context, key string, img Image) (string, error) {
	s[key] = img
	return "https://cdn.test/" + key, nil
}

func TestShouldGenerateRarelyAboutAQuarter(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	hits := 0
	for i := 0; i < 1000; i++ {
		if ShouldGenerate(model.ImageRarely, rnd) {
			hits++
		}
	}
	if hits < 200 || hits > 300 {
		t.Fatalf("expected ~250 hits, got %d", hits)
	}
	if !ShouldGenerate(model.ImageAlways, rnd) {
		t.Fatalf("always must always draw")
	}
}

func TestGenerateImagePromptFallsBackOnGarbage(t *testing.T) {
	vp := &model.VisualPersona{Gender: "woman", AgeRange: "30s"}
	b, err := GenerateImagePrompt(context.Background(), fakeCompleter{out: "Sure! Here's an idea: a sunset"}, "Finished my first marathon today", model.PostTypeWin, model.ImageStylePhoto, vp)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Fallback || !strings.Contains(b.Prompt, "marathon") || !b.ShouldIncludeCharacter {
		t.Fatalf("unexpected fallback brief: %+v", b)
	}
	if p := BuildCompleteImagePrompt(b, model.ImageStylePhoto, vp); p == "" || !strings.Contains(p, "30s woman") {
		t.Fatalf("final prompt missing character: %q", p)
	}
}

func TestGenerateImagePromptParsesFencedJSON(t *testing.T) {
	out := "```json\n{\"prompt\":\"A laptop on a cafe table\",\"shouldIncludeCharacter\":true,\"sceneDescription\":\"morning light\"}\n```"
	b, err := GenerateImagePrompt(context.Background(), fakeCompleter{out: out}, "Shipped my app", model.PostTypeWin, model.ImageStyleIllustration, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.Fallback || b.Prompt != "A laptop on a cafe table" {
		t.Fatalf("unexpected brief: %+v", b)
	}
	if b.ShouldIncludeCharacter {
		t.Fatalf("no visual persona means no character")
	}
	final := BuildCompleteImagePrompt(b, model.ImageStyleIllustration, nil)
	if !strings.Contains(final, "illustration") || !strings.Contains(final, "Scene: morning light") {
		t.Fatalf("unexpected final prompt: %s", final)
	}
}

func TestGenerateImagePromptProviderErrorPropagates(t *testing.T) {
	if _, err := GenerateImagePrompt(context.Background(), fakeCompleter{err: errors.New("down")}, "x", model.PostTypeWin, "", nil); err == nil {
		t.Fatalf("expected provider error")
	}
}

func TestPipelineForPost(t *testing.T) {
	m := &fakeModel{}
	store := memStorage{}
	p := NewPipeline(m, store, nil, rand.New(rand.NewSource(1)))
	npc := model.NPCProfile{ID: "npc1", VisualPersona: &model.VisualPersona{Gender: "man"}}
	out := `{"prompt":"Running along the river","shouldIncludeCharacter":true,"sceneDescription":"dawn"}`
	ref := &Image{Data: []byte("ref"), MIMEType: "image/png"}
	res, ok := p.ForPost(context.Background(), fakeCompleter{out: out}, npc, "Morning run done", model.PostTypeWin, ref)
	if !ok || !strings.HasPrefix(res.URL, "https://cdn.test/npc-images/npc1/post-") || res.Prompt == "" {
		t.Fatalf("unexpected result: %+v %v", res, ok)
	}
	if m.ref != ref || len(store) != 1 {
		t.Fatalf("reference not passed or upload missing")
	}

	m.err = errors.New("quota")
	if _, ok := p.ForPost(context.Background(), fakeCompleter{out: out}, npc, "again", model.PostTypeWin, nil); ok {
		t.Fatalf("render failure must degrade to no image")
	}
	var disabled *Pipeline
	if _, ok := disabled.ForPost(context.Background(), fakeCompleter{}, npc, "x", model.PostTypeWin, nil); ok {
		t.Fatalf("nil pipeline must not produce images")
	}
}

func TestReferenceImageNeedsVisualPersona(t *testing.T) {
	p := NewPipeline(&fakeModel{}, memStorage{}, nil, nil)
	if _, err := p.GenerateReferenceImage(context.Background(), model.NPCProfile{ID: "n"}); !errors.Is(err, ErrNoVisualPersona) {
		t.Fatalf("expected ErrNoVisualPersona, got %v", err)
	}
	url, err := p.GenerateReferenceImage(context.Background(), model.NPCProfile{ID: "n", VisualPersona: &model.VisualPersona{Gender: "woman", HairColor: "red"}})
	if err != nil || !strings.Contains(url, "/reference-") {
		t.Fatalf("unexpected reference upload: %v %s", err, url)
	}
}

func TestGenerateVisualPersona(t *testing.T) {
	out := `{"gender":"woman","age_range":"late 20s","hair_color":"black","typical_environments":["gym","office"]}`
	vp, err := GenerateVisualPersona(context.Background(), fakeCompleter{out: out}, model.NPCProfile{PersonaName: "Maya"})
	if err != nil || vp.AgeRange != "late 20s" || len(vp.Environments) != 2 {
		t.Fatalf("unexpected persona: %v %+v", err, vp)
	}
	if _, err := GenerateVisualPersona(context.Background(), fakeCompleter{out: "no"}, model.NPCProfile{}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLocalStorageAndFetcher(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "http://localhost/uploads/")
	url, err := s.Put(context.Background(), "npc-images/a/b.png", Image{Data: []byte("\x89PNG\r\n\x1a\nrest"), MIMEType: "image/png"})
	if err != nil || url != "http://localhost/uploads/npc-images/a/b.png" {
		t.Fatalf("unexpected url: %v %s", err, url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "npc-images", "a", "b.png"))
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	}))
	defer ts.Close()
	img, err := NewFetcher(0).Fetch(context.Background(), ts.URL+"/ref")
	if err != nil || img.MIMEType != "image/png" {
		t.Fatalf("expected sniffed png: %v %+v", err, img.MIMEType)
	}
	if _, err := NewFetcher(0).Fetch(context.Background(), ts.URL+"/missing"); err == nil {
		t.Fatalf("expected 404 error")
	}

	p := NewPipeline(&fakeModel{}, s, nil, nil)
	if ref := p.LoadReference(context.Background(), model.NPCProfile{ID: "x", AvatarURL: ts.URL + "/avatar"}); ref == nil {
		t.Fatalf("avatar should be used when no reference is set")
	}
}
