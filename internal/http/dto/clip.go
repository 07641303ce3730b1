package dto

import (
	"github.com/krywicki/discord-sounboard-bot/internal/domain"
	"github.com/krywicki/discord-sounboard-bot/internal/store"
)

type SearchRequest struct {
	Query string `form:"q"`
	Limit int    `form:"limit"`
}

type AutocompleteRequest struct {
	Query    string `form:"q"`
	Optional bool   `form:"optional"`
}

type ExportRequest struct {
	Order string `form:"order"`
}

type DeleteRequest struct {
	Path string `form:"path"`
}

// ClipUpdateRequest carries the editable fields of a clip. Nil fields are
// left unchanged.
type ClipUpdateRequest struct {
	Name *string `form:"name"`
	Tags *string `form:"tags"`
}

type ClipListResponse struct {
	Clips []domain.AudioRecord `json:"clips"`
	Count int                  `json:"count"`
}

func NewClipListResponse(recs []domain.AudioRecord) ClipListResponse {
	if recs == nil {
		recs = []domain.AudioRecord{}
	}
	return ClipListResponse{Clips: recs, Count: len(recs)}
}

type CountResponse struct {
	Count int `json:"count"`
}

type ChoicesResponse struct {
	Choices []string `json:"choices"`
}

type IndexReportResponse struct {
	store.IndexReport
	Consistent bool `json:"consistent"`
}

func NewIndexReportResponse(r store.IndexReport) IndexReportResponse {
	return IndexReportResponse{IndexReport: r, Consistent: r.Consistent()}
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
