package cmd

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/emotiscan/internal/config"
	"github.com/andresmejia3/emotiscan/internal/results"
	"github.com/andresmejia3/emotiscan/internal/types"
)

func TestRunScanRejectsInvalidConfig(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr string
	}{
		{
			name:    "Threshold above one",
			cfg:     config.Config{InputDir: in, OutputDir: out, CSVName: "o.csv", MinConfidence: 1.5, Provider: "vision"},
			wantErr: "between 0.0 and 1.0",
		},
		{
			name:    "Missing input",
			cfg:     config.Config{InputDir: filepath.Join(in, "nope"), OutputDir: out, CSVName: "o.csv", Provider: "vision"},
			wantErr: "input directory",
		},
		{
			name:    "Unknown provider",
			cfg:     config.Config{InputDir: in, OutputDir: out, CSVName: "o.csv", Provider: "azure"},
			wantErr: "unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runScan(context.Background(), &tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("runScan() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestRunFlagsReachConfig goes through cobra so the flag to viper binding is
// exercised. The bad threshold stops the run before any client is created.
func TestRunFlagsReachConfig(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	rootCmd.SetArgs([]string{"run", "-i", in, "-o", out, "-c", "1.5", "--csv", "flags.csv"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "between 0.0 and 1.0") {
		t.Fatalf("expected threshold error, got %v", err)
	}
	if Cfg.InputDir != in || Cfg.OutputDir != out || Cfg.CSVName != "flags.csv" || Cfg.MinConfidence != 1.5 {
		t.Errorf("flags not applied to config: %+v", Cfg)
	}
}

func TestRunSummary(t *testing.T) {
	dir := t.TempDir()
	sink := results.NewCSVSink(dir, "output.csv")
	face := types.Face{
		BoundingPoly: []types.Vertex{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}},
		Confidence:   0.9,
	}
	records := []types.Record{
		results.ForFace(face, "red", 2, "/in/party.jpg"),
		results.ForFace(face, "green", 2, "/in/party.jpg"),
		results.ForNoFace(0, "/in/landscape.jpg"),
	}
	if err := sink.Append(context.Background(), records); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := runSummary(&buf, sink.Path); err != nil {
		t.Fatalf("runSummary failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, rule and 2 rows, got:\n%s", buf.String())
	}
	if f := strings.Fields(lines[2]); len(f) != 4 || f[0] != "party.jpg" || f[1] != "2" || f[2] != "2" || f[3] != "red,green" {
		t.Errorf("unexpected party.jpg line %q", lines[2])
	}
	if f := strings.Fields(lines[3]); len(f) != 4 || f[0] != "landscape.jpg" || f[2] != "0" || f[3] != "-" {
		t.Errorf("unexpected landscape.jpg line %q", lines[3])
	}
}

func TestRunSummaryMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := runSummary(&buf, filepath.Join(t.TempDir(), "none.csv")); err == nil {
		t.Error("expected error for missing results file")
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"\n", false},
		{"n\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := confirm(bufio.NewReader(strings.NewReader(tt.input)), &out, "Sure?")
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Sure? [y/N]") {
			t.Errorf("prompt not written, got %q", out.String())
		}
	}
}

func TestRemoveImages(t *testing.T) {
	dir := t.TempDir()

	f, err := os.Create(filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatal(err)
	}
	png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	f.Close()
	os.WriteFile(filepath.Join(dir, "output.csv"), []byte("image_name,faces_filtered\n"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me"), 0644)

	n, err := removeImages(dir, t.TempDir())
	if err != nil {
		t.Fatalf("removeImages failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 image removed, got %d", n)
	}
	for _, keep := range []string{"output.csv", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, keep)); err != nil {
			t.Errorf("%s should survive reset: %v", keep, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "a.png")); !os.IsNotExist(err) {
		t.Error("a.png should have been removed")
	}

	if n, err := removeImages(filepath.Join(dir, "missing"), ""); err != nil || n != 0 {
		t.Errorf("missing dir should be a no-op, got %d, %v", n, err)
	}
}

func TestRemoveImagesRefusesInputDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.png")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	f.Close()

	if _, err := removeImages(dir+string(filepath.Separator), dir); err == nil {
		t.Fatal("expected refusal when output and input are the same directory")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source image must survive: %v", err)
	}
}
