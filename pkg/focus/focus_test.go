package focus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/menta2k/image-layout/pkg/constraint"
	"github.com/menta2k/image-layout/pkg/geometry"
)

func TestGravity(t *testing.T) {
	tests := []struct {
		name string
		in   Result
		want geometry.Gravity
	}{
		{"no subject", NoSubject("nothing"), geometry.Center},
		{"subject covers center", Result{Primary: Subject{Label: "cat", Box: Box{0.2, 0.2, 0.6, 0.6}}}, geometry.Center},
		{"top left subject", Result{Primary: Subject{Label: "cat", Box: Box{0.0, 0.25, 0.25, 0.125}}}, geometry.GravityPercent(0.25, 0.375)},
		{"right subject", Result{Primary: Subject{Label: "car", Box: Box{0.7, 0.4, 0.3, 0.2}}}, geometry.GravityPercent(0.7, 0.5)},
		{"empty box", Result{Primary: Subject{Label: "car"}}, geometry.Center},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Gravity(tt.in); got != tt.want {
				t.Errorf("Gravity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGravityDrivesCrop(t *testing.T) {
	g := Gravity(Result{Primary: Subject{Label: "dog", Box: Box{0, 0, 0.2, 0.2}}})
	l, err := constraint.New(constraint.FitCrop, 100, 100).WithGravity(g).Compute(1000, 500)
	if err != nil {
		t.Fatal(err)
	}
	// 500 pixels of horizontal slack, 20% of it to the left
	if want := geometry.NewRect(100, 0, 500, 500); l.SourceCrop != want {
		t.Errorf("crop = %v, want %v", l.SourceCrop, want)
	}
}

func TestBoxRect(t *testing.T) {
	if got, want := (Box{0.25, 0.5, 0.5, 0.25}).Rect(200, 100), geometry.NewRect(50, 50, 100, 25); got != want {
		t.Errorf("Rect = %v, want %v", got, want)
	}
	if got := (Box{0.9, 0.9, 0.5, 0.5}).Rect(10, 10); got != geometry.NewRect(9, 9, 1, 1) {
		t.Errorf("overflowing box = %v", got)
	}
}

func squareOnBlack() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			c := color.NRGBA{0, 0, 0, 255}
			if x >= 8 && x < 40 && y >= 8 && y < 40 {
				c = color.NRGBA{255, 255, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func uniform(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestSaliencyFinder(t *testing.T) {
	f := NewSaliencyFinder()
	res, err := f.Find(context.Background(), squareOnBlack())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found() {
		t.Fatalf("expected a subject, got %+v", res)
	}
	want := Box{X: 8.0 / 128, Y: 8.0 / 128, W: 0.25, H: 0.25}
	if diff := cmp.Diff(want, res.Primary.Box); diff != "" {
		t.Errorf("box mismatch (-want +got):\n%s", diff)
	}
	gx, gy := Gravity(res).Fractions()
	if gx >= 0.5 || gy >= 0.5 {
		t.Errorf("gravity = %v,%v, want towards top left", gx, gy)
	}
}

func TestSaliencyFinderUniform(t *testing.T) {
	for _, c := range []color.NRGBA{{0, 0, 0, 255}, {255, 255, 255, 255}} {
		res, err := NewSaliencyFinder().Find(context.Background(), uniform(c))
		if err != nil {
			t.Fatal(err)
		}
		if res.Found() {
			t.Errorf("uniform %v: unexpected subject %+v", c, res.Primary)
		}
	}
}

func TestSaliencyFinderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSaliencyFinder().Find(ctx, squareOnBlack()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type fakeClient struct {
	reply  string
	err    error
	prompt string
	data   []byte
}

func (c *fakeClient) Query(_ context.Context, _, prompt string, data []byte) (string, error) {
	c.prompt, c.data = prompt, data
	return c.reply, c.err
}

func TestModelFinder(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Result
	}{
		{
			name:  "plain JSON",
			reply: `{"primary":{"label":"Dog","confidence":0.9,"box":{"x":0.1,"y":0.2,"w":0.3,"h":0.4},"cx":0.25,"cy":0.4},"description":"a dog","tags":["Dog","dog"," grass "]}`,
			want: Result{
				Primary:     Subject{Label: "Dog", Confidence: 0.9, Box: Box{0.1, 0.2, 0.3, 0.4}, Cx: 0.25, Cy: 0.4},
				Description: "a dog",
				Tags:        []string{"dog", "grass"},
			},
		},
		{
			name: "fenced with comments and trailing comma",
			reply: "```json\n{\n  // subject\n  \"primary\":{\"label\":\"car\",\"confidence\":2,\"box\":{\"x\":0.5,\"y\":0.5,\"w\":0.8,\"h\":0.2},\"cx\":0.9,\"cy\":0.9,},\n" +
				"  \"description\":\"a car\", /* note */\n  \"tags\":[\"car\",],\n}\n```",
			want: Result{
				Primary:     Subject{Label: "car", Confidence: 1, Box: Box{0.5, 0.5, 0.5, 0.2}, Cx: 0.75, Cy: 0.6},
				Description: "a car",
				Tags:        []string{"car"},
			},
		},
		{
			name:  "prose reply",
			reply: "I see a dog on grass.",
			want:  validate(NoSubject("model returned non-JSON response", "unclear", "non-json", "fallback")),
		},
		{
			name:  "self described failure",
			reply: `{"primary":{"label":"unclear","confidence":0.4,"box":{"x":0.1,"y":0.1,"w":0.2,"h":0.2},"cx":0.2,"cy":0.2},"description":"","tags":[]}`,
			want: Result{
				Primary: Subject{Label: "none", Box: Box{0.1, 0.1, 0.2, 0.2}, Cx: 0.2, Cy: 0.2},
				Tags:    []string{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{reply: tt.reply}
			got, err := NewModelFinder(client, "test-model").Find(context.Background(), squareOnBlack())
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
			if client.prompt != DefaultPrompt {
				t.Error("default prompt not sent")
			}
			if _, err := jpeg.Decode(bytes.NewReader(client.data)); err != nil {
				t.Errorf("image sent is not a JPEG: %v", err)
			}
		})
	}
}

func TestModelFinderErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := NewModelFinder(&fakeClient{err: boom}, "m").Find(context.Background(), squareOnBlack()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if _, err := NewModelFinder(&fakeClient{reply: "  "}, "m").Find(context.Background(), squareOnBlack()); err == nil {
		t.Error("expected error for empty reply")
	}
}

func TestModelFinderDownscales(t *testing.T) {
	client := &fakeClient{reply: "{}"}
	if _, err := NewModelFinder(client, "m", WithMaxDimension(32), WithPrompt("where?")).Find(context.Background(), squareOnBlack()); err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(client.data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 32 || cfg.Height != 32 {
		t.Errorf("sent %dx%d, want 32x32", cfg.Width, cfg.Height)
	}
	if client.prompt != "where?" {
		t.Errorf("prompt = %q", client.prompt)
	}
}

func TestOllamaClient(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Content string   `json:"content"`
			Images  [][]byte `json:"images"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"model":"llava","message":{"role":"assistant","content":"{\"primary\":{}}"},"done":true}`+"\n")
	}))
	defer srv.Close()

	c, err := NewOllamaClient(srv.URL+"/api/chat", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	reply, err := c.Query(context.Background(), "llava", "find it", []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if reply != `{"primary":{}}` {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "llava" || len(got.Messages) != 1 || got.Messages[0].Content != "find it" {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages[0].Images) != 1 || !bytes.Equal(got.Messages[0].Images[0], []byte{1, 2, 3}) {
		t.Errorf("image not forwarded: %v", got.Messages[0].Images)
	}

	if _, err := NewOllamaClient("not a url", nil); err == nil {
		t.Error("expected error for missing scheme")
	}
}
