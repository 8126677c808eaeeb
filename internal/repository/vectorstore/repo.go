package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/db/pool"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/chunk"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
)

const writeStripes = 64

// HNSWConfig holds HNSW index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Stats is an operator-facing storage summary.
type Stats struct {
	TotalDocuments int
	TotalChunks    int
	TextBytes      int64
}

// Repo persists chunk vectors and metadata in Redis hashes behind an FT HNSW
// index. Writes to the same document are serialized through striped locks so
// concurrent re-ingestion cannot interleave a chunk's (vector, text, metadata)
// triple; reads run concurrently.
type Repo struct {
	store     db.Store
	keyPrefix string
	vectorDim int
	hnsw      HNSWConfig
	locks     [writeStripes]sync.Mutex
}

// New creates a vector store repository.
func New(store db.Store, keyPrefix string, vectorDim int) *Repo {
	return &Repo{store: store, keyPrefix: keyPrefix, vectorDim: vectorDim}
}

// WithHNSW configures HNSW build parameters for EnsureIndex.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

func (r *Repo) indexName() string { return r.keyPrefix + "chunks_idx" }

func (r *Repo) chunkKey(chunkID string) string { return r.keyPrefix + "chunk:" + chunkID }

func (r *Repo) docKey(documentID string) string { return r.keyPrefix + "doc:" + documentID }

func (r *Repo) bytesKey() string { return r.keyPrefix + "stats:text_bytes" }

func (r *Repo) stripe(documentID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(documentID))
	return &r.locks[h.Sum32()%writeStripes]
}

// EnsureIndex creates the chunk FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.keyPrefix + "chunk:"},
		Fields: []db.IndexField{
			{Name: db.FieldDocID, Type: db.IndexFieldTag},
			{Name: db.FieldSource, Type: db.IndexFieldTag},
			{Name: db.FieldIndex, Type: db.IndexFieldNumeric},
			{Name: db.FieldText, Type: db.IndexFieldText},
			{
				Name:              db.FieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return wrapStoreErr("create index", err)
	}
	return nil
}

// ReplaceDocument upserts all chunks of a document version and removes stale
// chunks left over from a longer prior version. Idempotent: chunk keys derive
// from (document ID, index), so re-ingesting overwrites in place.
func (r *Repo) ReplaceDocument(
	ctx context.Context, doc *document.Document, chunks []chunk.Chunk, vectors [][]float32,
) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	for i := range vectors {
		if len(vectors[i]) != r.vectorDim {
			return fmt.Errorf(
				"vector %d has dimension %d, index expects %d: %w",
				i, len(vectors[i]), r.vectorDim, domain.ErrVectorStore,
			)
		}
	}

	mu := r.stripe(doc.ID())
	mu.Lock()
	defer mu.Unlock()

	// A failed meta read must abort: treating the document as new would leave
	// stale chunks from a longer prior version searchable and skew the byte
	// counter.
	prevCount, prevBytes, err := r.readDocMeta(ctx, doc.ID())
	if err != nil {
		return err
	}

	items := make([]db.HashSetItem, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		items[i] = db.HashSetItem{
			Key: r.chunkKey(c.ChunkID()),
			Fields: map[string]string{
				db.FieldDocID:  c.DocumentID(),
				db.FieldIndex:  strconv.Itoa(c.Index()),
				db.FieldOffset: strconv.Itoa(c.Offset()),
				db.FieldText:   c.Text(),
				db.FieldSource: c.Source(),
				db.FieldTitle:  c.Title(),
				db.FieldVector: vectorToBytes(vectors[i]),
			},
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return wrapStoreErr("upsert chunks", err)
	}

	// Stale chunks from a longer previous version.
	if prevCount > len(chunks) {
		stale := make([]string, 0, prevCount-len(chunks))
		for i := len(chunks); i < prevCount; i++ {
			stale = append(stale, r.chunkKey(chunk.ID(doc.ID(), i)))
		}
		if err := r.store.Del(ctx, stale...); err != nil {
			return wrapStoreErr("delete stale chunks", err)
		}
	}

	if err := r.store.HSet(ctx, r.docKey(doc.ID()), map[string]string{
		"chunk_count": strconv.Itoa(len(chunks)),
		"bytes":       strconv.Itoa(len(doc.Content())),
		db.FieldSource: doc.Source(),
		db.FieldTitle:  doc.Title(),
		"ingested_at":  strconv.FormatInt(time.Now().UnixMilli(), 10),
	}); err != nil {
		return wrapStoreErr("write document meta", err)
	}

	if delta := int64(len(doc.Content())) - prevBytes; delta != 0 {
		if _, err := r.store.IncrBy(ctx, r.bytesKey(), delta); err != nil {
			return wrapStoreErr("update byte counter", err)
		}
	}

	return nil
}

// DeleteDocument removes a document's chunks and metadata.
func (r *Repo) DeleteDocument(ctx context.Context, documentID string) error {
	mu := r.stripe(documentID)
	mu.Lock()
	defer mu.Unlock()

	count, bytes, err := r.readDocMeta(ctx, documentID)
	if err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrDocumentNotFound
	}

	keys := make([]string, 0, count+1)
	for i := 0; i < count; i++ {
		keys = append(keys, r.chunkKey(chunk.ID(documentID, i)))
	}
	keys = append(keys, r.docKey(documentID))

	if err := r.store.Del(ctx, keys...); err != nil {
		return wrapStoreErr("delete document", err)
	}
	if bytes != 0 {
		if _, err := r.store.IncrBy(ctx, r.bytesKey(), -bytes); err != nil {
			return wrapStoreErr("update byte counter", err)
		}
	}
	return nil
}

// ChunkCount returns the stored chunk count for a document (0 when absent).
func (r *Repo) ChunkCount(ctx context.Context, documentID string) (int, error) {
	count, _, err := r.readDocMeta(ctx, documentID)
	return count, err
}

// Search runs a KNN query and returns chunks ordered by descending similarity,
// ties broken by ascending chunk ID for determinism.
func (r *Repo) Search(
	ctx context.Context, vector []float32, topK int, sourceTag string,
) ([]result.Chunk, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.indexName(),
		SourceTag: sourceTag,
		Vector:    vector,
		K:         topK,
		ReturnFields: []string{
			db.FieldDocID, db.FieldText, db.FieldSource, db.FieldTitle, "__vector_score",
		},
	})
	if err != nil {
		return nil, wrapStoreErr("search knn", err)
	}

	chunks := entriesToChunks(res.Entries, r.keyPrefix, true)
	sortChunks(chunks)
	return chunks, nil
}

// Stats reports document/chunk counts and stored text size.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	chunkCount, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return Stats{}, wrapStoreErr("count chunks", err)
	}

	docKeys, err := r.store.Scan(ctx, r.keyPrefix+"doc:*")
	if err != nil {
		return Stats{}, wrapStoreErr("scan documents", err)
	}

	var textBytes int64
	if data, err := r.store.Get(ctx, r.bytesKey()); err == nil {
		textBytes, _ = strconv.ParseInt(string(data), 10, 64)
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return Stats{}, wrapStoreErr("read byte counter", err)
	}

	return Stats{
		TotalDocuments: len(docKeys),
		TotalChunks:    chunkCount,
		TextBytes:      textBytes,
	}, nil
}

// HealthCheck verifies store connectivity.
func (r *Repo) HealthCheck(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return wrapStoreErr("ping", err)
	}
	return nil
}

func (r *Repo) readDocMeta(ctx context.Context, documentID string) (count int, bytes int64, err error) {
	fields, err := r.store.HGetAll(ctx, r.docKey(documentID))
	if err != nil {
		return 0, 0, wrapStoreErr("read document meta", err)
	}
	if len(fields) == 0 {
		return 0, 0, nil
	}
	count, _ = strconv.Atoi(fields["chunk_count"])
	bytes, _ = strconv.ParseInt(fields["bytes"], 10, 64)
	return count, bytes, nil
}

// wrapStoreErr classifies low-level store failures into domain sentinels.
func wrapStoreErr(op string, err error) error {
	if errors.Is(err, pool.ErrExhausted) {
		return fmt.Errorf("%s: %w", op, domain.ErrPoolExhausted)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrVectorStore, err)
}
