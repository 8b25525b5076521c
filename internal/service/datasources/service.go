// Package datasources manages uploaded tabular/RDF sources: storage,
// schema analysis, preview and download.
package datasources

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/platform/objectstore"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/tabular"
)

// analysisSampleRows caps how many rows schema analysis reads.
const analysisSampleRows = 10000

type Service struct {
	sources  repo.DataSourceRepository
	payloads *objectstore.Store
	now      func() time.Time
}

func New(sourceRepo repo.DataSourceRepository, payloads *objectstore.Store) *Service {
	if sourceRepo == nil || payloads == nil {
		return nil
	}
	return &Service{sources: sourceRepo, payloads: payloads, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter repo.DataSourceFilter) ([]domain.DataSource, error) {
	return s.sources.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (domain.DataSource, error) {
	return s.sources.Get(ctx, id)
}

// UploadRequest carries one source upload.
type UploadRequest struct {
	Filename  string
	Body      io.Reader
	Size      int64
	Encoding  string
	Delimiter string
	HasHeader bool
	// Analyze triggers schema analysis right after the upload.
	Analyze   bool
	CreatedBy string
}

// Upload streams the payload to object storage and registers the source.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (domain.DataSource, error) {
	if req.Filename == "" || req.Body == nil {
		return domain.DataSource{}, domain.Errf(domain.ErrKindValidation, "filename and body are required")
	}
	id := uuid.NewString()
	key := path.Join("sources", id, req.Filename)

	written, err := s.payloads.Put(ctx, key, req.Body, req.Size, "application/octet-stream")
	if err != nil {
		return domain.DataSource{}, domain.WrapErr(domain.ErrKindInfrastructure, err, "store payload")
	}

	ds := domain.DataSource{
		ID:          id,
		Name:        req.Filename,
		Format:      domain.SourceCSV,
		SizeBytes:   written,
		StoragePath: key,
		Encoding:    req.Encoding,
		Delimiter:   req.Delimiter,
		HasHeader:   req.HasHeader,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   s.now().UTC(),
	}
	if format, err := s.detectStored(ctx, ds); err == nil {
		ds.Format = format
	}
	if err := s.sources.Create(ctx, ds); err != nil {
		return domain.DataSource{}, err
	}
	if req.Analyze {
		return s.Analyze(ctx, id)
	}
	return ds, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ds, err := s.sources.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.sources.Delete(ctx, id); err != nil {
		return err
	}
	// payload removal is best-effort; an orphaned object is harmless
	_ = s.payloads.Remove(ctx, ds.StoragePath)
	return nil
}

// Analyze sniffs delimiter and header, infers column types, and refines
// the stored metadata.
func (s *Service) Analyze(ctx context.Context, id string) (domain.DataSource, error) {
	ds, err := s.sources.Get(ctx, id)
	if err != nil {
		return domain.DataSource{}, err
	}
	if err := s.sniff(ctx, &ds); err != nil {
		return domain.DataSource{}, err
	}
	dataset, err := s.read(ctx, ds, analysisSampleRows)
	if err != nil {
		return domain.DataSource{}, err
	}
	tabular.InferColumnTypes(dataset)

	analyzedAt := s.now().UTC()
	ds.RowCount = int64(dataset.RowCount())
	ds.ColumnCount = dataset.ColumnCount()
	ds.Schema = dataset.Schema()
	ds.AnalyzedAt = &analyzedAt
	if err := s.sources.Update(ctx, ds); err != nil {
		return domain.DataSource{}, err
	}
	return ds, nil
}

// Preview returns a window of parsed rows without mutating metadata.
func (s *Service) Preview(ctx context.Context, id string, rows, offset int) (*tabular.Dataset, [][]domain.Value, error) {
	if rows <= 0 || rows > 1000 {
		rows = 100
	}
	ds, err := s.sources.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	dataset, err := s.read(ctx, ds, offset+rows)
	if err != nil {
		return nil, nil, err
	}
	return dataset, dataset.Slice(offset, rows), nil
}

// Download streams the raw payload.
func (s *Service) Download(ctx context.Context, id string) (domain.DataSource, io.ReadCloser, error) {
	ds, err := s.sources.Get(ctx, id)
	if err != nil {
		return domain.DataSource{}, nil, err
	}
	body, err := s.payloads.Get(ctx, ds.StoragePath)
	if err != nil {
		return domain.DataSource{}, nil, domain.WrapErr(domain.ErrKindInfrastructure, err, "fetch payload")
	}
	return ds, body, nil
}

// DetectFormat sniffs a source's format from its name and content head.
func (s *Service) DetectFormat(ctx context.Context, id string) (domain.SourceFormat, error) {
	ds, err := s.sources.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.detectStored(ctx, ds)
}

func (s *Service) detectStored(ctx context.Context, ds domain.DataSource) (domain.SourceFormat, error) {
	body, err := s.payloads.Get(ctx, ds.StoragePath)
	if err != nil {
		return "", domain.WrapErr(domain.ErrKindInfrastructure, err, "fetch payload")
	}
	defer func() { _ = body.Close() }()

	head := make([]byte, 4096)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read payload head: %w", err)
	}
	return tabular.DetectFormat(ds.Name, head[:n]), nil
}

// sniff fills in missing delimiter and header metadata from the first rows
// of the payload.
func (s *Service) sniff(ctx context.Context, ds *domain.DataSource) error {
	if ds.Format != domain.SourceCSV && ds.Format != domain.SourceTSV {
		return nil
	}
	if ds.Delimiter == "" {
		body, err := s.payloads.Get(ctx, ds.StoragePath)
		if err != nil {
			return domain.WrapErr(domain.ErrKindInfrastructure, err, "fetch payload")
		}
		head := make([]byte, 4096)
		n, _ := io.ReadFull(body, head)
		_ = body.Close()
		ds.Delimiter = string(tabular.DetectDelimiter(head[:n]))
	}

	// header detection compares the first two raw rows
	probe := *ds
	probe.HasHeader = false
	raw, err := s.read(ctx, probe, 2)
	if err != nil {
		return err
	}
	if raw.RowCount() >= 2 {
		ds.HasHeader = tabular.DetectHeader(renderRow(raw.Rows[0]), renderRow(raw.Rows[1]))
	}
	return nil
}

func renderRow(row []domain.Value) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = cell.Render()
	}
	return out
}

func (s *Service) read(ctx context.Context, ds domain.DataSource, maxRows int) (*tabular.Dataset, error) {
	reader, opts, err := tabular.ReaderFor(ds.Format)
	if err != nil {
		return nil, domain.WrapErr(domain.ErrKindValidation, err, "source format")
	}
	if ds.Delimiter != "" {
		opts.Delimiter = []rune(ds.Delimiter)[0]
	}
	opts.HasHeader = ds.HasHeader
	opts.MaxRows = maxRows

	body, err := s.payloads.Get(ctx, ds.StoragePath)
	if err != nil {
		return nil, domain.WrapErr(domain.ErrKindInfrastructure, err, "fetch payload")
	}
	defer func() { _ = body.Close() }()

	dataset, err := reader.Read(body, opts)
	if err != nil {
		return nil, domain.WrapErr(domain.ErrKindValidation, err, "parse source")
	}
	return dataset, nil
}
