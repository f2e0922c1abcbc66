package convert_test

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hothouse/hothouse/internal/config"
	"github.com/hothouse/hothouse/internal/convert"
	"github.com/hothouse/hothouse/internal/greenhouse"
	"github.com/hothouse/hothouse/internal/logger"
)

type fakeRasterizer struct {
	pages int
	err   error
	calls []string
}

func (f *fakeRasterizer) Rasterize(path string, scale float64) ([]image.Image, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return nil, f.err
	}
	images := make([]image.Image, f.pages)
	for i := range images {
		images[i] = image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	return images, nil
}

func fileServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-fake-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newConverter(t *testing.T, rast convert.Rasterizer, run convert.CommandRunner) (*convert.Converter, string) {
	t.Helper()
	workDir := t.TempDir()
	opts := []convert.Option{convert.WithRasterizer(rast)}
	if run != nil {
		opts = append(opts, convert.WithCommandRunner(run))
	}
	cv := convert.New(config.ConvertConfig{
		WorkDir:       workDir,
		SofficePath:   "soffice",
		ViewportScale: 2.0,
	}, logger.NewNop(), opts...)
	return cv, workDir
}

func TestConvertPDFProducesOrderedPageImages(t *testing.T) {
	srv := fileServer(t)
	rast := &fakeRasterizer{pages: 2}
	cv, workDir := newConverter(t, rast, nil)

	att := &greenhouse.Attachment{URL: srv.URL + "/files/resume.pdf", Type: "resume"}
	pages, err := cv.Convert(context.Background(), 7, att, "resume")
	require.NoError(t, err)

	want := []string{
		filepath.Join(workDir, "7", "resume-0.png"),
		filepath.Join(workDir, "7", "resume-1.png"),
	}
	assert.Equal(t, want, pages)
	for _, p := range pages {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr, "page image %s must exist", p)
	}
}

func TestConvertDocxRunsExternalConverter(t *testing.T) {
	srv := fileServer(t)
	rast := &fakeRasterizer{pages: 1}

	var gotArgs []string
	run := func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = append([]string{name}, args...)
		return "", nil
	}
	cv, workDir := newConverter(t, rast, run)

	att := &greenhouse.Attachment{URL: srv.URL + "/files/resume.docx", Type: "resume"}
	pages, err := cv.Convert(context.Background(), 7, att, "resume")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	require.NotEmpty(t, gotArgs)
	assert.Equal(t, "soffice", gotArgs[0])
	assert.Contains(t, gotArgs, "--headless")
	assert.Contains(t, gotArgs, "--convert-to")

	// Rasterization must target the produced PDF, not the source docx.
	require.Len(t, rast.calls, 1)
	assert.Equal(t, filepath.Join(workDir, "7", "resume.pdf"), rast.calls[0])
}

func TestConvertExternalConverterErrorYieldsEmpty(t *testing.T) {
	srv := fileServer(t)
	rast := &fakeRasterizer{pages: 1}
	run := func(ctx context.Context, name string, args ...string) (string, error) {
		return "source file could not be loaded", nil
	}
	cv, _ := newConverter(t, rast, run)

	att := &greenhouse.Attachment{URL: srv.URL + "/files/resume.doc", Type: "resume"}
	pages, err := cv.Convert(context.Background(), 7, att, "resume")
	require.NoError(t, err)
	assert.Empty(t, pages)
	assert.Empty(t, rast.calls, "rasterizer must not run after converter failure")
}

func TestConvertUnsupportedExtensionYieldsEmpty(t *testing.T) {
	srv := fileServer(t)
	rast := &fakeRasterizer{pages: 1}
	cv, _ := newConverter(t, rast, nil)

	att := &greenhouse.Attachment{URL: srv.URL + "/files/resume.txt", Type: "resume"}
	pages, err := cv.Convert(context.Background(), 7, att, "resume")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestConvertRasterizeErrorYieldsEmpty(t *testing.T) {
	srv := fileServer(t)
	rast := &fakeRasterizer{err: errors.New("corrupt pdf")}
	cv, _ := newConverter(t, rast, nil)

	att := &greenhouse.Attachment{URL: srv.URL + "/files/resume.pdf", Type: "resume"}
	pages, err := cv.Convert(context.Background(), 7, att, "resume")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestConvertDownloadFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	cv, _ := newConverter(t, &fakeRasterizer{pages: 1}, nil)
	att := &greenhouse.Attachment{URL: srv.URL + "/gone.pdf", Type: "resume"}

	_, err := cv.Convert(context.Background(), 7, att, "resume")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"), "error should carry status: %v", err)
}

func TestConvertManyPagesNaming(t *testing.T) {
	srv := fileServer(t)
	rast := &fakeRasterizer{pages: 11}
	cv, workDir := newConverter(t, rast, nil)

	att := &greenhouse.Attachment{URL: srv.URL + "/cv.pdf", Type: "cover_letter"}
	pages, err := cv.Convert(context.Background(), 9, att, "cover_letter")
	require.NoError(t, err)
	require.Len(t, pages, 11)
	assert.Equal(t, filepath.Join(workDir, "9", "cover_letter-10.png"), pages[10])
}
