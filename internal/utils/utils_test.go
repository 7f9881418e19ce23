package utils

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestListFiles(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"b.jpg", "a.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// Nested files must not be listed
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nested", "c.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "notes.txt"),
	}
	if len(files) != len(want) {
		t.Fatalf("Expected %d files, got %d: %v", len(want), len(files), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestListFiles_MissingDir(t *testing.T) {
	if _, err := ListFiles(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestIsImage(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	// Misleading extension on purpose: detection goes by content
	pngPath := filepath.Join(dir, "photo.dat")
	if err := os.WriteFile(pngPath, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "fake.jpg")
	if err := os.WriteFile(txtPath, []byte("just some text"), 0644); err != nil {
		t.Fatal(err)
	}

	if ok, err := IsImage(pngPath); err != nil || !ok {
		t.Errorf("IsImage(png) = %v, %v; want true", ok, err)
	}
	if ok, err := IsImage(txtPath); err != nil || ok {
		t.Errorf("IsImage(text) = %v, %v; want false", ok, err)
	}
}

func TestIsImage_Formats(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	tests := []struct {
		name   string
		encode func(*bytes.Buffer) error
		want   bool
	}{
		{"jpeg", func(b *bytes.Buffer) error { return jpeg.Encode(b, img, nil) }, true},
		{"png", func(b *bytes.Buffer) error { return png.Encode(b, img) }, true},
		{"gif", func(b *bytes.Buffer) error { return gif.Encode(b, img, nil) }, false},
		{"svg", func(b *bytes.Buffer) error {
			_, err := b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4"></svg>`)
			return err
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf); err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(dir, "sample."+tt.name)
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				t.Fatal(err)
			}
			if ok, err := IsImage(path); err != nil || ok != tt.want {
				t.Errorf("IsImage(%s) = %v, %v; want %v", tt.name, ok, err, tt.want)
			}
		})
	}
}

func TestGenerateImageID(t *testing.T) {
	tmp, err := os.CreateTemp("", "image_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write([]byte("fake image content")); err != nil {
		t.Fatal(err)
	}
	tmp.Close()

	id, err := GenerateImageID(tmp.Name())
	if err != nil || id == "" {
		t.Errorf("Failed to generate ID: %v", err)
	}

	// Verify Determinism
	id2, _ := GenerateImageID(tmp.Name())
	if id != id2 {
		t.Errorf("Hash is not deterministic. Got %s, then %s", id, id2)
	}

	// Verify Sensitivity (Change content -> Change ID)
	f, _ := os.OpenFile(tmp.Name(), os.O_APPEND|os.O_WRONLY, 0644)
	f.Write([]byte(" modification"))
	f.Close()

	id3, _ := GenerateImageID(tmp.Name())
	if id == id3 {
		t.Error("Hash did not change after file modification")
	}
}
