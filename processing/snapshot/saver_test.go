package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"camsnap/internal/models"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	open  bool
	frame *models.Frame
	err   error
	reads int
}

func (c *fakeCamera) IsOpen() bool { return c.open }

func (c *fakeCamera) Read() (*models.Frame, error) {
	c.reads++
	if c.err != nil {
		return nil, c.err
	}
	return c.frame, nil
}

type recordingPublisher struct{ got []models.Snapshot }

func (p *recordingPublisher) Publish(snap models.Snapshot) { p.got = append(p.got, snap) }

// solidFrame builds a frame filled with one BGR colour.
func solidFrame(w, h int, b, g, r byte) *models.Frame {
	f := models.NewFrame(w, h)
	for i := 0; i < w*h; i++ {
		f.Pix[i*3] = b
		f.Pix[i*3+1] = g
		f.Pix[i*3+2] = r
	}
	return f
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestSave_WritesJPEG(t *testing.T) {
	dir := t.TempDir()
	cam := &fakeCamera{open: true, frame: solidFrame(16, 8, 0, 0, 255)}
	s := NewSaver(cam, 90, nil)
	s.SetDirectory(dir)

	path, err := s.Save("alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "alice.jpg"), path)

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	r, g, b, _ := img.At(4, 4).RGBA()
	assert.Greater(t, r>>8, uint32(200), "red survives the channel swap")
	assert.Less(t, g>>8, uint32(50))
	assert.Less(t, b>>8, uint32(50))
}

func TestSave_EmptyNameNeverWrites(t *testing.T) {
	cases := []struct {
		desc string
		open bool
		dir  bool
		want error
	}{
		{"device open, dir set", true, true, ErrNameRequired},
		{"device open, no dir", true, false, ErrNameRequired},
		{"device closed", false, true, ErrWebcamUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			dir := t.TempDir()
			cam := &fakeCamera{open: tc.open, frame: solidFrame(2, 2, 1, 2, 3)}
			s := NewSaver(cam, 0, nil)
			if tc.dir {
				s.SetDirectory(dir)
			}

			_, err := s.Save("")
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, dirEntries(t, dir))
			assert.Zero(t, cam.reads)
		})
	}
}

func TestSave_NoLocation(t *testing.T) {
	cam := &fakeCamera{open: true, frame: solidFrame(2, 2, 1, 2, 3)}
	s := NewSaver(cam, 0, nil)

	_, err := s.Save("bob")
	assert.ErrorIs(t, err, ErrLocationRequired)
	assert.EqualError(t, err, "please select a save location")
	assert.Zero(t, cam.reads)
}

func TestSave_DeviceNotOpen(t *testing.T) {
	dir := t.TempDir()
	cam := &fakeCamera{open: false}
	s := NewSaver(cam, 0, nil)
	s.SetDirectory(dir)

	_, err := s.Save("carol")
	assert.ErrorIs(t, err, ErrWebcamUnavailable)
	assert.EqualError(t, err, "webcam not available")
	assert.Empty(t, dirEntries(t, dir))

	noCam := NewSaver(nil, 0, nil)
	_, err = noCam.Save("carol")
	assert.ErrorIs(t, err, ErrWebcamUnavailable)
}

func TestSave_ReadFailure(t *testing.T) {
	dir := t.TempDir()
	cam := &fakeCamera{open: true, err: errors.New("timeout")}
	s := NewSaver(cam, 0, nil)
	s.SetDirectory(dir)

	_, err := s.Save("dave")
	assert.ErrorIs(t, err, ErrCaptureFailed)
	assert.Empty(t, dirEntries(t, dir))
}

func TestSave_OverwritesInPlace(t *testing.T) {
	dir := t.TempDir()
	cam := &fakeCamera{open: true, frame: solidFrame(8, 8, 0, 0, 255)}
	s := NewSaver(cam, 95, nil)
	s.SetDirectory(dir)

	first, err := s.Save("same")
	require.NoError(t, err)

	cam.frame = solidFrame(8, 8, 255, 0, 0)
	second, err := s.Save("same")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, dirEntries(t, dir), 1)

	img, err := imaging.Open(second)
	require.NoError(t, err)
	r, _, b, _ := img.At(3, 3).RGBA()
	assert.Greater(t, b>>8, uint32(200), "second capture is blue")
	assert.Less(t, r>>8, uint32(50))
}

func TestSave_PublishesSavedFile(t *testing.T) {
	dir := t.TempDir()
	cam := &fakeCamera{open: true, frame: solidFrame(4, 4, 10, 20, 30)}
	pub := &recordingPublisher{}
	s := NewSaver(cam, 0, nil)
	s.SetPublisher(pub)
	s.SetDirectory(dir)

	path, err := s.Save("eve")
	require.NoError(t, err)

	require.Len(t, pub.got, 1)
	assert.Equal(t, "eve.jpg", pub.got[0].Name)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, onDisk, pub.got[0].Data)
}

func TestSaver_DirectoryState(t *testing.T) {
	s := NewSaver(&fakeCamera{}, 0, nil)
	assert.Empty(t, s.Directory())
	assert.False(t, s.Target("x").HasDirectory())

	s.SetDirectory("/tmp/out")
	assert.Equal(t, "/tmp/out", s.Directory())
	assert.Equal(t, models.SaveTarget{Directory: "/tmp/out", Name: "x"}, s.Target("x"))
	assert.Equal(t, DefaultJPEGQuality, s.quality)
}
