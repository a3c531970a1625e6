package worker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
	"github.com/garyjia/grant-portal/internal/infrastructure/export"
	"github.com/garyjia/grant-portal/internal/infrastructure/storage"
)

type stubRenderer struct {
	renderFunc func(site string, rec entity.Record) ([]byte, error)
}

func (r *stubRenderer) Format() port.ExportFormat { return port.ExportHTML }
func (r *stubRenderer) Extension() string         { return ".html" }
func (r *stubRenderer) ContentType() string       { return "text/html" }
func (r *stubRenderer) Render(site string, rec entity.Record) ([]byte, error) {
	return r.renderFunc(site, rec)
}

func newTestWorker(t *testing.T, cfg ExportWorkerConfig, r export.Renderer) (*ExportWorker, *storage.LocalFileStorage) {
	t.Helper()
	fs := storage.NewLocalFileStorage(t.TempDir(), zap.NewNop())
	w := NewExportWorker(cfg, export.NewRenderers(r), fs, zap.NewNop())
	return w, fs
}

func request(letterNo string) port.ExportRequest {
	return port.ExportRequest{
		Site:   "drdotwo",
		Record: entity.Record{LetterNo: letterNo},
		Format: port.ExportHTML,
	}
}

func TestExportWorker_DoneAfterFileStored(t *testing.T) {
	r := &stubRenderer{renderFunc: func(site string, rec entity.Record) ([]byte, error) {
		return []byte("<p>" + rec.LetterNo + "</p>"), nil
	}}
	w, fs := newTestWorker(t, ExportWorkerConfig{Workers: 2, QueueSize: 4}, r)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	job, err := w.Submit(context.Background(), request("DR/2024/17"))
	require.NoError(t, err)

	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("export did not complete")
	}

	res, err := job.Result()
	require.NoError(t, err)
	assert.Regexp(t, `^drdotwo/DR_2024_17-[0-9a-f-]{36}\.html$`, res.Path)
	assert.Equal(t, "DR_2024_17.html", res.FileName)
	assert.Equal(t, fs.GetFullPath(res.Path), res.FullPath)
	assert.FileExists(t, res.FullPath, "file must exist once Done is closed")
}

func TestExportWorker_JobsNeverShareAFile(t *testing.T) {
	r := &stubRenderer{renderFunc: func(site string, rec entity.Record) ([]byte, error) {
		return []byte(rec.Comments), nil
	}}
	w, _ := newTestWorker(t, ExportWorkerConfig{Workers: 2, QueueSize: 4}, r)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	first := request("A/1")
	first.Record.Comments = "draft from session one"
	second := request("A_1")
	second.Record.Comments = "draft from session two"

	var results []*port.ExportResult
	for _, req := range []port.ExportRequest{first, second} {
		job, err := w.Submit(context.Background(), req)
		require.NoError(t, err)
		res, err := job.Result()
		require.NoError(t, err)
		results = append(results, res)
	}

	assert.NotEqual(t, results[0].Path, results[1].Path)
	assert.Equal(t, results[0].FileName, results[1].FileName, "same download name")
	for i, want := range []string{first.Record.Comments, second.Record.Comments} {
		content, err := os.ReadFile(results[i].FullPath)
		require.NoError(t, err)
		assert.Equal(t, want, string(content))
	}
}

func TestExportWorker_Discard(t *testing.T) {
	r := &stubRenderer{renderFunc: func(string, entity.Record) ([]byte, error) { return []byte("x"), nil }}
	w, _ := newTestWorker(t, DefaultExportWorkerConfig(), r)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	job, err := w.Submit(context.Background(), request("L-1"))
	require.NoError(t, err)
	res, err := job.Result()
	require.NoError(t, err)

	require.NoError(t, w.Discard(context.Background(), res))
	assert.NoFileExists(t, res.FullPath)
	assert.NoError(t, w.Discard(context.Background(), res), "already gone")
	assert.NoError(t, w.Discard(context.Background(), nil))
}

func TestExportWorker_RenderFailure(t *testing.T) {
	boom := errors.New("template broken")
	r := &stubRenderer{renderFunc: func(string, entity.Record) ([]byte, error) { return nil, boom }}
	w, _ := newTestWorker(t, DefaultExportWorkerConfig(), r)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	job, err := w.Submit(context.Background(), request("L-1"))
	require.NoError(t, err)

	<-job.Done()
	_, err = job.Result()
	assert.ErrorIs(t, err, boom)
}

func TestExportWorker_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	r := &stubRenderer{renderFunc: func(string, entity.Record) ([]byte, error) {
		started <- struct{}{}
		<-release
		return []byte("x"), nil
	}}
	w, _ := newTestWorker(t, ExportWorkerConfig{Workers: 1, QueueSize: 1}, r)
	require.NoError(t, w.Start(context.Background()))

	first, err := w.Submit(context.Background(), request("L-1"))
	require.NoError(t, err)
	<-started

	_, err = w.Submit(context.Background(), request("L-2"))
	require.NoError(t, err)

	_, err = w.Submit(context.Background(), request("L-3"))
	assert.ErrorIs(t, err, port.ErrExportQueueFull)

	close(release)
	<-first.Done()
	require.NoError(t, w.Stop())
}

func TestExportWorker_SubmitWhenStopped(t *testing.T) {
	r := &stubRenderer{renderFunc: func(string, entity.Record) ([]byte, error) { return nil, nil }}
	w, _ := newTestWorker(t, DefaultExportWorkerConfig(), r)

	_, err := w.Submit(context.Background(), request("L-1"))
	assert.ErrorIs(t, err, port.ErrExportStopped)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())

	_, err = w.Submit(context.Background(), request("L-1"))
	assert.ErrorIs(t, err, port.ErrExportStopped)
}

func TestExportWorker_UnsupportedFormat(t *testing.T) {
	r := &stubRenderer{renderFunc: func(string, entity.Record) ([]byte, error) { return nil, nil }}
	w, _ := newTestWorker(t, DefaultExportWorkerConfig(), r)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	req := request("L-1")
	req.Format = port.ExportXLSX
	_, err := w.Submit(context.Background(), req)
	assert.ErrorIs(t, err, port.ErrUnsupportedFormat)
}
