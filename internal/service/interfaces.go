package service

import (
	"context"
	"io"
	"net/url"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/projection"
	"github.com/jionychiow/cmss/internal/spreadsheet"
)

// Backend is the part of the REST client the use cases drive.
// *api.Client implements it.
type Backend interface {
	List(ctx context.Context, res api.Resource, query url.Values) ([]domain.Record, error)
	Create(ctx context.Context, res api.Resource, payload map[string]any) (domain.Record, error)
	Update(ctx context.Context, res api.Resource, id string, payload map[string]any) (domain.Record, error)
	Delete(ctx context.Context, res api.Resource, id string) error
	Upload(ctx context.Context, res api.Resource, filename string, data []byte, fields map[string]string) (*api.UploadResult, error)
	Export(ctx context.Context, res api.Resource, req api.ExportRequest) ([]byte, error)
}

// References is the registry surface the use cases translate through.
// *registry.Registry implements it.
type References interface {
	spreadsheet.References
	projection.IDResolver
	projection.CodeResolver
}

// Filter scopes a record listing. Phase and ShiftType are narrowed by the
// actor's profile before they reach the backend. ProductionLine and Process
// narrow the fetched records and must sit under the effective phase.
type Filter struct {
	Phase          string
	ShiftType      string
	ProductionLine string
	Process        string
	Search         string
	Actor          *domain.UserProfile
}

type RecordService interface {
	List(ctx context.Context, variant string, f Filter) ([]domain.Record, error)
	Create(ctx context.Context, variant string, r domain.Record, actor *domain.UserProfile) (domain.Record, error)
	Update(ctx context.Context, variant, id string, r domain.Record, actor *domain.UserProfile) (domain.Record, error)
	Delete(ctx context.Context, variant, id string, actor *domain.UserProfile) error
	DeleteBatch(ctx context.Context, variant string, ids []string, refresh Filter) (*BatchResult, error)
}

// BatchResult is the aggregate outcome of a batch delete. Records is the
// list fetched once after every delete has settled.
type BatchResult struct {
	Succeeded  []string
	Failed     map[string]error
	Records    []domain.Record
	RefreshErr error
}

// ImportRequest carries an uploaded workbook and the phase/shift it is
// imported into.
type ImportRequest struct {
	Variant   string
	Filename  string
	Body      io.Reader
	Phase     string
	ShiftType string
	Actor     *domain.UserProfile
}

// ImportResult holds the outcome of a spreadsheet import.
type ImportResult struct {
	BatchID       string
	Accepted      int
	Rejected      int
	RowErrors     []spreadsheet.RowError
	ServerMessage string
	ServerErrors  []string
	Uploaded      bool
}

type ImportService interface {
	Import(ctx context.Context, req ImportRequest) (*ImportResult, error)
}

// ExportRequest selects what a spreadsheet export covers.
type ExportRequest struct {
	Variant   string
	Filter    spreadsheet.ExportFilter
	ShiftType string
	Actor     *domain.UserProfile
}

type ExportService interface {
	Export(ctx context.Context, req ExportRequest) ([]byte, error)
}

type TemplateService interface {
	Template(variant string) ([]byte, error)
}
