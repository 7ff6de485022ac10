package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/heartbeam-data/pulse.report/internal/rppg/landmarks"
	"github.com/heartbeam-data/pulse.report/internal/vision"
)

// FrameSource produces camera frames plus whatever landmark sets the
// external detector reported for each one. An empty slice means no face
// this frame. Next returns io.EOF when a finite source runs out.
type FrameSource interface {
	Next() (vision.Frame, []landmarks.Set, error)
	Close() error
}

// SyntheticFaceSource renders a pulsing face for dev runs: a skin-toned
// patch whose green channel oscillates at the target heart rate while
// the face sways slowly, so the stabilizer has real motion to undo.
type SyntheticFaceSource struct {
	w, h  int
	fps   float64
	bpm   float64
	frame int
}

// NewSyntheticFaceSource creates a source of w-by-h frames at the given
// acquisition rate pulsing at bpm. Non-positive dimensions take VGA.
func NewSyntheticFaceSource(w, h int, fps, bpm float64) *SyntheticFaceSource {
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	if fps <= 0 {
		fps = 30
	}
	if bpm <= 0 {
		bpm = 72
	}
	return &SyntheticFaceSource{w: w, h: h, fps: fps, bpm: bpm}
}

func (s *SyntheticFaceSource) Next() (vision.Frame, []landmarks.Set, error) {
	t := float64(s.frame) / s.fps
	s.frame++

	// Slow head sway, a few pixels on each axis
	offX := float64(s.w)/2 - 100 + 6*math.Sin(2*math.Pi*0.20*t)
	offY := float64(s.h)/2 - 140 + 4*math.Sin(2*math.Pi*0.13*t)
	lm := syntheticLandmarks(offX, offY)

	pulse := 4 * math.Cos(2*math.Pi*s.bpm/60*t)

	f := vision.NewFrame(s.w, s.h)
	f.Fill(40, 40, 40)
	drawFacePatch(f, offX, offY, pulse)

	return f, []landmarks.Set{lm}, nil
}

func (s *SyntheticFaceSource) Close() error {
	return nil
}

// syntheticLandmarks places the detector's 68 points for a face whose
// canonical geometry is anchored at (offX, offY). Points the estimator
// never reads sit at the face centroid.
func syntheticLandmarks(offX, offY float64) landmarks.Set {
	at := func(x, y float64) vision.Point {
		return vision.Point{X: x + offX, Y: y + offY}
	}
	var lm landmarks.Set
	for i := range lm {
		lm[i] = at(100, 140)
	}
	lm[landmarks.LeftBrowOuter] = at(55, 102)
	lm[18] = at(60, 99)
	lm[landmarks.LeftBrowPeak] = at(65, 100)
	lm[20] = at(72, 100)
	lm[landmarks.LeftBrowInner] = at(80, 101)
	lm[landmarks.RightBrowInner] = at(120, 101)
	lm[23] = at(128, 100)
	lm[landmarks.RightBrowPeak] = at(135, 100)
	lm[25] = at(140, 99)
	lm[landmarks.RightBrowOuter] = at(145, 102)
	lm[landmarks.NoseBridge] = at(100, 125)
	lm[landmarks.LeftEyeOuter] = at(58, 112)
	lm[landmarks.RightEyeOuter] = at(142, 112)
	return lm
}

// drawFacePatch fills an elliptical skin-toned region covering the
// synthetic face, with the pulse riding on the green channel. The
// ellipse is sized so the stabilized forehead crop never samples
// background.
func drawFacePatch(f vision.Frame, offX, offY, pulse float64) {
	cx := offX + 100
	cy := offY + 115
	const rx, ry = 75, 115

	g := clampU8(150 + pulse)
	for y := int(cy - ry); y <= int(cy+ry); y++ {
		for x := int(cx - rx); x <= int(cx+rx); x++ {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			if dx*dx+dy*dy <= 1 {
				f.Set(x, y, 115, g, 185)
			}
		}
	}
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// ReplayFrameSource feeds previously captured PNG frames from a
// directory in name order. Landmarks come from a JSON sidecar next to
// each frame (frame_0001.png reads frame_0001.json) holding one array
// of 68 [x, y] pairs per detected face. A missing sidecar means no face
// that frame.
type ReplayFrameSource struct {
	dir   string
	files []string
	next  int
}

// NewReplayFrameSource lists the PNG frames under dir.
func NewReplayFrameSource(dir string) (*ReplayFrameSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no PNG frames in %s", dir)
	}
	sort.Strings(files)
	return &ReplayFrameSource{dir: dir, files: files}, nil
}

func (r *ReplayFrameSource) Next() (vision.Frame, []landmarks.Set, error) {
	if r.next >= len(r.files) {
		return vision.Frame{}, nil, io.EOF
	}
	name := r.files[r.next]
	r.next++

	frame, err := loadPNGFrame(filepath.Join(r.dir, name))
	if err != nil {
		return vision.Frame{}, nil, fmt.Errorf("decode %s: %w", name, err)
	}

	sidecar := strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
	sets, err := loadLandmarkSidecar(filepath.Join(r.dir, sidecar))
	if err != nil {
		return vision.Frame{}, nil, fmt.Errorf("sidecar %s: %w", sidecar, err)
	}

	return frame, sets, nil
}

func (r *ReplayFrameSource) Close() error {
	return nil
}

// loadPNGFrame decodes a PNG file into the interleaved BGR raster the
// pipeline consumes.
func loadPNGFrame(path string) (vision.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return vision.Frame{}, err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return vision.Frame{}, err
	}

	return frameFromImage(img), nil
}

func frameFromImage(img image.Image) vision.Frame {
	bounds := img.Bounds()
	f := vision.NewFrame(bounds.Dx(), bounds.Dy())
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			f.Set(x, y, uint8(b>>8), uint8(g>>8), uint8(r>>8))
		}
	}
	return f
}

// loadLandmarkSidecar reads the per-frame landmark file. Absence is the
// detector reporting no face, not an error.
func loadLandmarkSidecar(path string) ([]landmarks.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var faces [][][2]float64
	if err := json.Unmarshal(data, &faces); err != nil {
		return nil, fmt.Errorf("parse landmarks: %w", err)
	}

	sets := make([]landmarks.Set, 0, len(faces))
	for i, face := range faces {
		if len(face) != landmarks.Count {
			return nil, fmt.Errorf("face %d has %d points, want %d", i, len(face), landmarks.Count)
		}
		var lm landmarks.Set
		for j, pt := range face {
			lm[j] = vision.Point{X: pt[0], Y: pt[1]}
		}
		sets = append(sets, lm)
	}
	return sets, nil
}
