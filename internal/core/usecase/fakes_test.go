package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/tutorly/mathrag/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type statusCall struct {
	status domain.TextbookStatus
	errMsg string
}

type repoFake struct {
	tb            *domain.Textbook
	created       *domain.Textbook
	getErr        error
	createErr     error
	statusErr     error
	statsErr      error
	statusCalls   []statusCall
	statsPages    int
	statsChunks   int
	statsSavedFor string
}

func (f *repoFake) Create(_ context.Context, tb *domain.Textbook) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = tb
	return nil
}

func (f *repoFake) GetByID(context.Context, string) (*domain.Textbook, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyTb := *f.tb
	return &copyTb, nil
}

func (f *repoFake) List(context.Context) ([]domain.Textbook, error) {
	if f.tb == nil {
		return nil, nil
	}
	return []domain.Textbook{*f.tb}, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.TextbookStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return f.statusErr
}

func (f *repoFake) SaveIndexStats(_ context.Context, id string, pageCount, chunkCount int) error {
	if f.statsErr != nil {
		return f.statsErr
	}
	f.statsSavedFor = id
	f.statsPages = pageCount
	f.statsChunks = chunkCount
	return nil
}

type storageFake struct {
	saved map[string][]byte
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.saved[key])), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishTextbookIngested(_ context.Context, textbookID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, textbookID)
	return nil
}

func (f *queueFake) SubscribeTextbookIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

type pageExtractorFake struct {
	pages []domain.PageRecord
	err   error
}

func (f *pageExtractorFake) ExtractPages(context.Context, *domain.Textbook) ([]domain.PageRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

type chunkerFake struct {
	chunks []domain.Chunk
}

func (f *chunkerFake) ChunkDocument([]domain.PageRecord, string, string) []domain.Chunk {
	return f.chunks
}

type chunkStoreFake struct {
	chunks    map[string]domain.Chunk
	putErr    error
	getErr    error
	filterErr error
	deleteErr error
}

func newChunkStoreFake(chunks ...domain.Chunk) *chunkStoreFake {
	f := &chunkStoreFake{chunks: make(map[string]domain.Chunk, len(chunks))}
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
	return f
}

func (f *chunkStoreFake) Put(_ context.Context, chunks []domain.Chunk) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.chunks == nil {
		f.chunks = make(map[string]domain.Chunk, len(chunks))
	}
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
	return nil
}

func (f *chunkStoreFake) Get(_ context.Context, id string) (*domain.Chunk, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.chunks[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrChunkNotFound, "get chunk", domain.ErrChunkNotFound)
	}
	return &c, nil
}

func (f *chunkStoreFake) Filter(_ context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	var out []domain.Chunk
	for _, c := range f.chunks {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *chunkStoreFake) DeleteByDocument(_ context.Context, documentID string) ([]string, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	var ids []string
	for id, c := range f.chunks {
		if c.DocumentID == documentID {
			ids = append(ids, id)
			delete(f.chunks, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type embedderFake struct {
	vectors  [][]float32
	queryVec []float32
	embedErr error
	queryErr error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryVec != nil {
		return f.queryVec, nil
	}
	return []float32{1}, nil
}

type vectorIndexFake struct {
	results     []domain.ScoredID
	addedIDs    []string
	removedIDs  []string
	lastAllowed []string
	searchErr   error
	addErr      error
	removeErr   error
}

func (f *vectorIndexFake) Add(_ context.Context, ids []string, _ [][]float32) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.addedIDs = append(f.addedIDs, ids...)
	return nil
}

func (f *vectorIndexFake) Search(_ context.Context, _ []float32, k int) ([]domain.ScoredID, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return capScored(f.results, k), nil
}

func (f *vectorIndexFake) SearchFiltered(_ context.Context, _ []float32, k int, allowedIDs []string) ([]domain.ScoredID, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.lastAllowed = allowedIDs
	allowed := make(map[string]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	var out []domain.ScoredID
	for _, sc := range f.results {
		if allowed[sc.ChunkID] {
			out = append(out, sc)
		}
	}
	return capScored(out, k), nil
}

func (f *vectorIndexFake) Remove(_ context.Context, ids []string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedIDs = append(f.removedIDs, ids...)
	return nil
}

type keywordIndexFake struct {
	results    []domain.ScoredID
	indexCalls [][]domain.Chunk
}

func (f *keywordIndexFake) Index(chunks []domain.Chunk) {
	f.indexCalls = append(f.indexCalls, chunks)
}

func (f *keywordIndexFake) Search(_ string, k int) []domain.ScoredID {
	return capScored(f.results, k)
}

type reporterFake struct {
	path  string
	err   error
	calls int
}

func (f *reporterFake) WriteIndexReport(context.Context, *domain.Textbook, []domain.Chunk) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

func capScored(ids []domain.ScoredID, k int) []domain.ScoredID {
	if k <= 0 || len(ids) <= k {
		return ids
	}
	return ids[:k]
}
