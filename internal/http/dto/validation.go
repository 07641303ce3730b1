package dto

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/krywicki/discord-sounboard-bot/internal/constants"
	"github.com/krywicki/discord-sounboard-bot/internal/domain"
)

const maxSearchLimit = 100

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *SearchRequest) Validate() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(r.Query) == "" {
		errs = append(errs, ValidationError{Field: "q", Message: "is required"})
	}
	if r.Limit < 0 || r.Limit > maxSearchLimit {
		errs = append(errs, ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 0 and %d", maxSearchLimit)})
	}
	return errs
}

func (r *ExportRequest) Validate() (domain.OrderBy, []ValidationError) {
	order, err := domain.ParseOrderBy(r.Order)
	if err != nil {
		return order, []ValidationError{{Field: "order", Message: "must be one of id, name, created_at"}}
	}
	return order, nil
}

func (r *DeleteRequest) Validate() []ValidationError {
	if strings.TrimSpace(r.Path) == "" {
		return []ValidationError{{Field: "path", Message: "is required"}}
	}
	return nil
}

func (r *ClipUpdateRequest) Validate() []ValidationError {
	var errs []ValidationError
	if r.Name == nil && r.Tags == nil {
		errs = append(errs, ValidationError{Field: "name", Message: "name or tags is required"})
	}
	errs = append(errs, validateName(r.Name)...)
	errs = append(errs, validateTags(r.Tags)...)
	return errs
}

func validateName(name *string) []ValidationError {
	var errs []ValidationError
	if name == nil {
		return errs
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "must not be blank"})
	} else if utf8.RuneCountInString(trimmed) > constants.MaxNameLen {
		errs = append(errs, ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", constants.MaxNameLen)})
	}
	return errs
}

func validateTags(tags *string) []ValidationError {
	var errs []ValidationError
	if tags != nil && utf8.RuneCountInString(*tags) > constants.MaxTagsLen {
		errs = append(errs, ValidationError{Field: "tags", Message: fmt.Sprintf("must be at most %d characters", constants.MaxTagsLen)})
	}
	return errs
}
