package encode

import "testing"

func TestStage_Render(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		want  string
	}{
		{"no args", Stage{Name: "hflip"}, "hflip"},
		{"fps", FPS(24), "fps=24"},
		{
			"scale fit",
			ScaleFit(720, 1280),
			"scale=720:1280:force_original_aspect_ratio=decrease",
		},
		{
			"pad center",
			PadCenter(720, 1280, "black"),
			"pad=720:1280:(ow-iw)/2:(oh-ih)/2:black",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stage.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFitAndPad_Render(t *testing.T) {
	got := FitAndPad(720, 1280, 24).Render()
	want := "scale=720:1280:force_original_aspect_ratio=decrease," +
		"pad=720:1280:(ow-iw)/2:(oh-ih)/2:black," +
		"fps=24"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestFitAndPad_StageOrder(t *testing.T) {
	p := FitAndPad(1080, 1920, 30)
	if len(p) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(p))
	}
	for i, name := range []string{"scale", "pad", "fps"} {
		if p[i].Name != name {
			t.Errorf("stage %d = %q, want %q", i, p[i].Name, name)
		}
	}
}
